package store

import (
	"context"
	"time"
)

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	StatusNone           CommentStatus = "NONE"
	StatusApproved       CommentStatus = "APPROVED"
	StatusRejected       CommentStatus = "REJECTED"
	StatusPremod         CommentStatus = "PREMOD"
	StatusSystemWithheld CommentStatus = "SYSTEM_WITHHELD"
)

// PublishedStatuses is the subset of statuses visible to readers. Only
// comments in one of these states are eligible for caching.
var PublishedStatuses = []CommentStatus{StatusNone, StatusApproved}

// Published reports whether the status is in the published subset.
func (s CommentStatus) Published() bool {
	for _, p := range PublishedStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Comment tag types.
const (
	TagAdmin      = "ADMIN"
	TagExpert     = "EXPERT"
	TagFeatured   = "FEATURED"
	TagMember     = "MEMBER"
	TagModerator  = "MODERATOR"
	TagQuestion   = "QUESTION"
	TagReview     = "REVIEW"
	TagStaff      = "STAFF"
	TagUnanswered = "UNANSWERED"
)

// ActionReaction is the actionCounts key backing the most-reacted sort.
const ActionReaction = "REACTION"

// CommentTag marks a comment with a display tag (featured, staff, ...).
type CommentTag struct {
	Type      string    `bson:"type" json:"type"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Comment is a single comment document. The cache consumes it read-only;
// creation and moderation happen in external services.
type Comment struct {
	ID       string  `bson:"id" json:"id"`
	TenantID string  `bson:"tenant_id" json:"tenant_id"`
	StoryID  string  `bson:"story_id" json:"story_id"`
	AuthorID string  `bson:"author_id" json:"author_id"`
	ParentID *string `bson:"parent_id,omitempty" json:"parent_id,omitempty"`

	// AncestorIDs is the chain from root to immediate parent; it spares the
	// cache from re-walking the tree on ancestor lookups.
	AncestorIDs []string `bson:"ancestor_ids" json:"ancestor_ids"`

	Body   string        `bson:"body" json:"body"`
	Status CommentStatus `bson:"status" json:"status"`
	Tags   []CommentTag  `bson:"tags,omitempty" json:"tags,omitempty"`

	// Rating is 1-5 for review-style comments, 0 when unrated.
	Rating int `bson:"rating,omitempty" json:"rating,omitempty"`

	// ChildCount is the direct reply count, maintained by the submission
	// service and trusted here for "no children" short-circuits.
	ChildCount   int            `bson:"child_count" json:"child_count"`
	ActionCounts map[string]int `bson:"action_counts,omitempty" json:"action_counts,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// HasTag reports whether the comment carries a tag of the given type.
func (c *Comment) HasTag(tagType string) bool {
	for _, t := range c.Tags {
		if t.Type == tagType {
			return true
		}
	}
	return false
}

// CommentStore abstracts "get comments for story X" against the live or the
// archived collection. archived selects the archive tier only when one is
// configured; implementations fall back to the live tier otherwise.
type CommentStore interface {
	ForStory(ctx context.Context, tenantID, storyID string, archived bool) ([]Comment, error)
	RepliesTo(ctx context.Context, tenantID, storyID, parentID string, archived bool) ([]Comment, error)
}
