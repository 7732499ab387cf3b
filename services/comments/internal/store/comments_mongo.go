package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCommentStore reads comment documents from MongoDB. Archived stories'
// comments may live in a separate cold collection; the adapter keeps the API
// uniform for callers either way.
type MongoCommentStore struct {
	live     *mongo.Collection
	archived *mongo.Collection // nil when no archive tier is configured
}

// NewMongoCommentStore creates a store over the live collection and an
// optional archive collection (pass nil to disable the archive tier).
func NewMongoCommentStore(live, archived *mongo.Collection) *MongoCommentStore {
	return &MongoCommentStore{live: live, archived: archived}
}

func (s *MongoCommentStore) collection(archived bool) *mongo.Collection {
	if archived && s.archived != nil {
		return s.archived
	}
	return s.live
}

func (s *MongoCommentStore) ForStory(ctx context.Context, tenantID, storyID string, archived bool) ([]Comment, error) {
	filter := bson.D{
		{Key: "tenant_id", Value: tenantID},
		{Key: "story_id", Value: storyID},
	}
	return s.find(ctx, archived, filter)
}

func (s *MongoCommentStore) RepliesTo(ctx context.Context, tenantID, storyID, parentID string, archived bool) ([]Comment, error) {
	filter := bson.D{
		{Key: "tenant_id", Value: tenantID},
		{Key: "story_id", Value: storyID},
		{Key: "parent_id", Value: parentID},
	}
	return s.find(ctx, archived, filter)
}

func (s *MongoCommentStore) find(ctx context.Context, archived bool, filter bson.D) ([]Comment, error) {
	cur, err := s.collection(archived).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo find comments: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var comments []Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("mongo decode comments: %w", err)
	}
	return comments, nil
}
