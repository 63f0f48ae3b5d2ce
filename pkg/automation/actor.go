package automation

import (
	"context"
	"errors"

	"igengage/pkg/account"
	"igengage/pkg/config"
)

// Kind identifies one categorized engagement operation
type Kind string

const (
	KindLikePosts     Kind = config.KindLikePosts
	KindLikeStories   Kind = config.KindLikeStories
	KindReplyStory    Kind = config.KindReplyStory
	KindDirectMessage Kind = config.KindDirectMessage
)

// ErrSkipped is returned by dispatch when an action was not applicable for
// the target (for example a DM gated on story absence). Skipped actions are
// neither successes nor failures and are not recorded.
var ErrSkipped = errors.New("action skipped")

// Actor is the opaque engagement primitive. Implementations drive a browser
// or session-based HTTP client; the driver only sees success or a typed
// error. All methods honor context cancellation.
type Actor interface {
	// LikePosts likes up to count recent posts of the target
	LikePosts(ctx context.Context, acct *account.Record, target string, count int) error

	// LikeStories views and likes the target's current stories
	LikeStories(ctx context.Context, acct *account.Record, target string) error

	// ReplyStory replies to the target's current story with the message
	ReplyStory(ctx context.Context, acct *account.Record, target, message string) error

	// SendDirectMessage sends a direct message to the target
	SendDirectMessage(ctx context.Context, acct *account.Record, target, message string) error

	// HasStories reports whether the target currently has stories
	HasStories(ctx context.Context, acct *account.Record, target string) (bool, error)
}

// Plan describes one automation run
type Plan struct {
	// Accounts to drive, in configured order; empty means every stored account
	Accounts []string

	// Targets to process, in list order
	Targets []string

	// Actions are the enabled kinds, dispatched in this order per target
	Actions []Kind

	// DMOnlyIfNoStories gates direct messages on story absence
	DMOnlyIfNoStories bool

	// LikeCount is how many recent posts to like per target
	LikeCount int

	// DailyLimit, when positive, caps every account at this many actions
	// for the session instead of its stored per-account limit. The stored
	// limit is not modified.
	DailyLimit int

	// Message pools
	StoryReplies   []string
	DirectMessages []string
}

// ActionSink receives every attempted action for statistics purposes
type ActionSink interface {
	LogAction(accountName, targetName, actionType string, success bool, details string) error
}
