package instagram

import (
	"context"
	"net/http"
	"net/url"

	"igengage/pkg/account"
	"igengage/pkg/automation"
	errs "igengage/pkg/errors"
)

var _ automation.Actor = (*Client)(nil)

// fetchProfile resolves the target's user ID and recent timeline media
func (c *Client) fetchProfile(ctx context.Context, sess *session, target string) (*profileResponse, error) {
	var profile profileResponse
	if err := c.getJSON(ctx, sess, c.profileURL(target), &profile); err != nil {
		return nil, err
	}
	if profile.Data.User.ID == "" {
		return nil, errs.New(errs.ErrorTypeNotFound, 0, "user %s not found", target)
	}
	return &profile, nil
}

// fetchReel returns the target's current story items, which may be empty
func (c *Client) fetchReel(ctx context.Context, sess *session, target string) (userID string, items []string, err error) {
	profile, err := c.fetchProfile(ctx, sess, target)
	if err != nil {
		return "", nil, err
	}
	userID = profile.Data.User.ID

	var reels reelsResponse
	if err := c.getJSON(ctx, sess, c.reelsURL(userID), &reels); err != nil {
		return "", nil, err
	}
	for _, reel := range reels.Reels {
		for _, item := range reel.Items {
			id := item.ID
			if id == "" {
				id = item.Pk
			}
			if id != "" {
				items = append(items, id)
			}
		}
	}
	return userID, items, nil
}

// LikePosts likes up to count recent posts of the target
func (c *Client) LikePosts(ctx context.Context, acct *account.Record, target string, count int) error {
	sess, err := c.newSession(acct)
	if err != nil {
		return err
	}

	profile, err := c.fetchProfile(ctx, sess, target)
	if err != nil {
		return err
	}
	if profile.Data.User.IsPrivate {
		return errs.New(errs.ErrorTypeNotFound, 0, "user %s is private", target)
	}

	edges := profile.Data.User.Media.Edges
	liked := 0
	for _, edge := range edges {
		if liked >= count {
			break
		}
		if _, err := c.do(ctx, sess, http.MethodPost, c.likeURL(edge.Node.ID), url.Values{}); err != nil {
			return err
		}
		liked++
	}

	if liked == 0 {
		return errs.New(errs.ErrorTypeNotFound, 0, "user %s has no posts to like", target)
	}

	c.logger.InfoWithFields("liked posts", map[string]interface{}{
		"account": acct.Username,
		"target":  target,
		"count":   liked,
	})
	return nil
}

// LikeStories views and likes the target's current stories
func (c *Client) LikeStories(ctx context.Context, acct *account.Record, target string) error {
	sess, err := c.newSession(acct)
	if err != nil {
		return err
	}

	_, items, err := c.fetchReel(ctx, sess, target)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errs.New(errs.ErrorTypeNotFound, 0, "user %s has no active stories", target)
	}

	for _, mediaID := range items {
		if _, err := c.do(ctx, sess, http.MethodPost, c.likeURL(mediaID), url.Values{}); err != nil {
			return err
		}
	}

	c.logger.InfoWithFields("liked stories", map[string]interface{}{
		"account": acct.Username,
		"target":  target,
		"count":   len(items),
	})
	return nil
}

// ReplyStory replies to the target's current story with the message
func (c *Client) ReplyStory(ctx context.Context, acct *account.Record, target, message string) error {
	sess, err := c.newSession(acct)
	if err != nil {
		return err
	}

	userID, items, err := c.fetchReel(ctx, sess, target)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errs.New(errs.ErrorTypeNotFound, 0, "user %s has no active stories", target)
	}

	form := url.Values{
		"media_id":        {items[0]},
		"recipient_users": {"[[" + userID + "]]"},
		"text":            {message},
		"action":          {"send_item"},
	}
	if _, err := c.do(ctx, sess, http.MethodPost, c.storyReplyURL(), form); err != nil {
		return err
	}

	c.logger.InfoWithFields("replied to story", map[string]interface{}{
		"account": acct.Username,
		"target":  target,
	})
	return nil
}

// SendDirectMessage sends a direct message to the target
func (c *Client) SendDirectMessage(ctx context.Context, acct *account.Record, target, message string) error {
	sess, err := c.newSession(acct)
	if err != nil {
		return err
	}

	profile, err := c.fetchProfile(ctx, sess, target)
	if err != nil {
		return err
	}

	form := url.Values{
		"recipient_users": {"[[" + profile.Data.User.ID + "]]"},
		"text":            {message},
		"action":          {"send_item"},
	}
	if _, err := c.do(ctx, sess, http.MethodPost, c.directTextURL(), form); err != nil {
		return err
	}

	c.logger.InfoWithFields("sent direct message", map[string]interface{}{
		"account": acct.Username,
		"target":  target,
	})
	return nil
}

// HasStories reports whether the target currently has stories
func (c *Client) HasStories(ctx context.Context, acct *account.Record, target string) (bool, error) {
	sess, err := c.newSession(acct)
	if err != nil {
		return false, err
	}

	_, items, err := c.fetchReel(ctx, sess, target)
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}
