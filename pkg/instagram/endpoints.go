package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the Instagram web API base URL
	BaseURL = "https://www.instagram.com"

	// webAppID identifies the web client to the API
	webAppID = "936619743392459"
)

// profileURL returns the web profile info endpoint for a username
func (c *Client) profileURL(username string) string {
	return fmt.Sprintf("%s/api/v1/users/web_profile_info/?username=%s",
		c.baseURL, url.QueryEscape(username))
}

// reelsURL returns the story reel feed endpoint for a user ID
func (c *Client) reelsURL(userID string) string {
	return fmt.Sprintf("%s/api/v1/feed/reels_media/?reel_ids=%s",
		c.baseURL, url.QueryEscape(userID))
}

// likeURL returns the like endpoint for a media ID
func (c *Client) likeURL(mediaID string) string {
	return fmt.Sprintf("%s/api/v1/web/likes/%s/like/", c.baseURL, mediaID)
}

// storyReplyURL returns the direct-thread broadcast endpoint for story replies
func (c *Client) storyReplyURL() string {
	return fmt.Sprintf("%s/api/v1/direct_v2/threads/broadcast/reel_share/", c.baseURL)
}

// directTextURL returns the direct-thread broadcast endpoint for text messages
func (c *Client) directTextURL() string {
	return fmt.Sprintf("%s/api/v1/direct_v2/threads/broadcast/text/", c.baseURL)
}
