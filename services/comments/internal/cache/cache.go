// Package cache materializes a story's comment tree from the document store
// into a two-level cache (per-request memo over a shared remote tier) and
// serves sorted, filtered views of it.
package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/comments-platform/services/comments/internal/store"
)

// DefaultTTL bounds staleness of remote entries and membership sets.
const DefaultTTL = 24 * time.Hour

const rootBucket = "root"

// CommentCache resolves comments and comment buckets for one request.
//
// Construct one instance per request/operation: the memo maps are not safe
// for concurrent use and are meant to die with the request. The injected
// store and remote tier are shared and must be concurrency-safe.
type CommentCache struct {
	store  store.CommentStore
	remote Remote
	log    *zap.Logger
	ttl    time.Duration

	// Per-request memos over the remote tier.
	comments map[string]*store.Comment
	members  map[string][]string
}

func New(st store.CommentStore, remote Remote, log *zap.Logger, ttl time.Duration) *CommentCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CommentCache{
		store:    st,
		remote:   remote,
		log:      log,
		ttl:      ttl,
		comments: make(map[string]*store.Comment),
		members:  make(map[string][]string),
	}
}

func dataKey(tenantID, storyID, commentID string) string {
	return tenantID + ":" + storyID + ":" + commentID + ":data"
}

func membersKey(tenantID, storyID, parentID string) string {
	if parentID == "" {
		parentID = rootBucket
	}
	return tenantID + ":" + storyID + ":" + parentID
}

// emptyStoryKey marks a story that materialized to zero comments, so reads
// can tell "loaded and empty" from "not yet loaded".
func emptyStoryKey(tenantID, storyID string) string {
	return tenantID + ":" + storyID + ":" + rootBucket + ":empty"
}

// Find resolves a single comment, or nil when it is not cached anywhere.
func (c *CommentCache) Find(ctx context.Context, tenantID, storyID, id string) (*store.Comment, error) {
	key := dataKey(tenantID, storyID, id)

	if local, ok := c.comments[key]; ok {
		return local, nil
	}

	record, found, err := c.remote.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("comment cache find %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}

	comment, err := deserializeComment(record)
	if err != nil {
		// Corrupt entries degrade to a miss; the next materialization
		// rewrites them.
		c.log.Warn("comment cache: dropping corrupt entry",
			zap.String("key", key), zap.Error(err))
		return nil, nil
	}

	c.comments[key] = comment
	return comment, nil
}

// FindMany resolves the given IDs, preserving input order. Missing entries
// are dropped silently from the result (and logged: a membership set that
// references them is under-reported, not failed).
func (c *CommentCache) FindMany(ctx context.Context, tenantID, storyID string, ids []string) ([]*store.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[string]*store.Comment, len(ids))

	var missing []string
	for _, id := range ids {
		key := dataKey(tenantID, storyID, id)
		if local, ok := c.comments[key]; ok {
			found[id] = local
		} else {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		records, err := c.remote.MGet(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("comment cache find many: %w", err)
		}
		for key, record := range records {
			comment, err := deserializeComment(record)
			if err != nil {
				c.log.Warn("comment cache: dropping corrupt entry",
					zap.String("key", key), zap.Error(err))
				continue
			}
			c.comments[dataKey(comment.TenantID, comment.StoryID, comment.ID)] = comment
			found[comment.ID] = comment
		}
	}

	ordered := make([]*store.Comment, 0, len(ids))
	for _, id := range ids {
		if comment, ok := found[id]; ok {
			ordered = append(ordered, comment)
		}
	}
	if len(ordered) < len(ids) {
		c.log.Warn("comment cache: membership references missing entries",
			zap.String("tenant_id", tenantID),
			zap.String("story_id", storyID),
			zap.Int("requested", len(ids)),
			zap.Int("resolved", len(ordered)))
	}
	return ordered, nil
}

// FindAncestors returns the cached ancestor chain of a comment, root first.
func (c *CommentCache) FindAncestors(ctx context.Context, tenantID, storyID, id string) ([]*store.Comment, error) {
	comment, err := c.Find(ctx, tenantID, storyID, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, nil
	}
	return c.FindMany(ctx, tenantID, storyID, comment.AncestorIDs)
}

// RootComments serves the root bucket of a story, materializing it on first
// access.
func (c *CommentCache) RootComments(ctx context.Context, tenantID, storyID string, archived bool, orderBy Order, filter Filter) (*Connection, error) {
	key := membersKey(tenantID, storyID, "")

	rootIDs, ok := c.members[key]
	if !ok {
		var err error
		rootIDs, err = c.remote.SMembers(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("comment cache root members: %w", err)
		}

		if len(rootIDs) == 0 {
			loaded, err := c.remote.Exists(ctx, emptyStoryKey(tenantID, storyID))
			if err != nil {
				return nil, fmt.Errorf("comment cache empty marker: %w", err)
			}
			if !loaded {
				rootIDs, err = c.populateStory(ctx, tenantID, storyID, archived)
				if err != nil {
					return nil, err
				}
			}
		}

		c.members[key] = rootIDs
	}

	if len(rootIDs) == 0 {
		return newConnection(nil), nil
	}

	comments, err := c.FindMany(ctx, tenantID, storyID, rootIDs)
	if err != nil {
		return nil, err
	}
	return newConnection(sortComments(applyFilter(comments, filter), orderBy)), nil
}

// Replies serves the direct children of a parent comment.
func (c *CommentCache) Replies(ctx context.Context, tenantID, storyID, parentID string, archived bool, orderBy Order, filter Filter) (*Connection, error) {
	comments, err := c.retrieveReplies(ctx, tenantID, storyID, parentID, archived)
	if err != nil {
		return nil, err
	}
	return newConnection(sortComments(applyFilter(comments, filter), orderBy)), nil
}

// FlattenedReplies serves every descendant of a parent as one flat bucket.
// Traversal is depth-first pre-order with an explicit stack so deep reply
// chains cannot exhaust the goroutine stack; the requested sort is applied
// globally after flattening.
func (c *CommentCache) FlattenedReplies(ctx context.Context, tenantID, storyID, parentID string, archived bool, orderBy Order, filter Filter) (*Connection, error) {
	replies, err := c.retrieveReplies(ctx, tenantID, storyID, parentID, archived)
	if err != nil {
		return nil, err
	}

	var flattened []*store.Comment
	stack := make([]*store.Comment, 0, len(replies))
	for i := len(replies) - 1; i >= 0; i-- {
		stack = append(stack, replies[i])
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		flattened = append(flattened, node)

		if node.ChildCount == 0 {
			continue
		}
		children, err := c.retrieveReplies(ctx, tenantID, storyID, node.ID, archived)
		if err != nil {
			return nil, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return newConnection(sortComments(applyFilter(flattened, filter), orderBy)), nil
}

func (c *CommentCache) retrieveReplies(ctx context.Context, tenantID, storyID, parentID string, archived bool) ([]*store.Comment, error) {
	parent, err := c.Find(ctx, tenantID, storyID, parentID)
	if err != nil {
		return nil, err
	}
	// Trusted child count avoids a membership read for leaf comments.
	if parent == nil || parent.ChildCount == 0 {
		return nil, nil
	}

	key := membersKey(tenantID, storyID, parentID)
	ids, ok := c.members[key]
	if !ok {
		ids, err = c.remote.SMembers(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("comment cache reply members: %w", err)
		}
		if len(ids) == 0 {
			ids, err = c.populateReplies(ctx, tenantID, storyID, parentID, archived)
			if err != nil {
				return nil, err
			}
		}
		c.members[key] = ids
	}

	if len(ids) == 0 {
		return nil, nil
	}
	return c.FindMany(ctx, tenantID, storyID, ids)
}

// populateStory materializes a whole story: one full fetch, bucketed by
// parent, written remote-side as a single atomic batch. Returns the root
// bucket's IDs.
func (c *CommentCache) populateStory(ctx context.Context, tenantID, storyID string, archived bool) ([]string, error) {
	comments, err := c.store.ForStory(ctx, tenantID, storyID, archived)
	if err != nil {
		return nil, fmt.Errorf("comment cache populate story %s: %w", storyID, err)
	}

	buckets, cached, err := c.writeComments(ctx, tenantID, storyID, comments)
	if err != nil {
		return nil, fmt.Errorf("comment cache populate story %s: %w", storyID, err)
	}
	if cached == 0 {
		// Loaded and empty: mark it so the next reader does not re-fetch.
		batch := &Batch{}
		batch.Set(emptyStoryKey(tenantID, storyID), "1", c.ttl)
		if err := c.remote.Exec(ctx, batch); err != nil {
			return nil, fmt.Errorf("comment cache mark empty story %s: %w", storyID, err)
		}
		return nil, nil
	}

	c.log.Debug("comment cache: story materialized",
		zap.String("tenant_id", tenantID),
		zap.String("story_id", storyID),
		zap.Bool("archived", archived),
		zap.Int("comments", cached))

	return buckets[rootBucket], nil
}

// populateReplies materializes a single reply bucket (used when a parent's
// bucket went cold while its data entry survived).
func (c *CommentCache) populateReplies(ctx context.Context, tenantID, storyID, parentID string, archived bool) ([]string, error) {
	comments, err := c.store.RepliesTo(ctx, tenantID, storyID, parentID, archived)
	if err != nil {
		return nil, fmt.Errorf("comment cache populate replies of %s: %w", parentID, err)
	}

	buckets, _, err := c.writeComments(ctx, tenantID, storyID, comments)
	if err != nil {
		return nil, fmt.Errorf("comment cache populate replies of %s: %w", parentID, err)
	}
	return buckets[parentID], nil
}

// writeComments buckets the published subset of comments by parent and
// issues every data entry and membership set in one atomic batch, so a
// concurrent reader never sees a partially populated bucket. It also warms
// the per-request memos.
func (c *CommentCache) writeComments(ctx context.Context, tenantID, storyID string, comments []store.Comment) (map[string][]string, int, error) {
	batch := &Batch{}
	buckets := make(map[string][]string)
	cached := 0

	for i := range comments {
		comment := comments[i]
		// Unpublished comments must never be served from the cache.
		if !comment.Status.Published() {
			continue
		}

		key := dataKey(tenantID, storyID, comment.ID)
		value, err := serializeComment(&comment)
		if err != nil {
			c.log.Warn("comment cache: cannot serialize comment",
				zap.String("comment_id", comment.ID), zap.Error(err))
			continue
		}

		bucket := rootBucket
		if comment.ParentID != nil {
			bucket = *comment.ParentID
		}
		buckets[bucket] = append(buckets[bucket], comment.ID)

		batch.Set(key, value, c.ttl)
		c.comments[key] = &comments[i]
		cached++
	}

	for bucket, ids := range buckets {
		parentID := bucket
		if bucket == rootBucket {
			parentID = ""
		}
		batch.SAdd(membersKey(tenantID, storyID, parentID), c.ttl, ids...)
	}

	if batch.Len() > 0 {
		if err := c.remote.Exec(ctx, batch); err != nil {
			return nil, 0, err
		}
	}

	return buckets, cached, nil
}

// Update applies one comment write (creation or status change) to both
// tiers without re-materializing the story. Comments outside the published
// subset are never written.
func (c *CommentCache) Update(ctx context.Context, comment *store.Comment) error {
	if !comment.Status.Published() {
		return nil
	}

	key := dataKey(comment.TenantID, comment.StoryID, comment.ID)
	value, err := serializeComment(comment)
	if err != nil {
		return err
	}

	parentID := ""
	if comment.ParentID != nil {
		parentID = *comment.ParentID
	}
	parentKey := membersKey(comment.TenantID, comment.StoryID, parentID)

	// One atomic batch: a reader never observes the membership entry
	// without its data entry.
	batch := &Batch{}
	batch.Set(key, value, c.ttl)
	batch.SAdd(parentKey, c.ttl, comment.ID)
	if err := c.remote.Exec(ctx, batch); err != nil {
		return fmt.Errorf("comment cache update %s: %w", comment.ID, err)
	}

	c.comments[key] = comment
	if !containsString(c.members[parentKey], comment.ID) {
		c.members[parentKey] = append(c.members[parentKey], comment.ID)
	}
	return nil
}
