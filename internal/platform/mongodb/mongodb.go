// Package mongodb provides the MongoDB client factory for the comment
// collections, including index bootstrap for the query shapes the cache
// depends on.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const commentsCollection = "comments"

// Conn bundles the client with the live and (optional) archive comment
// collections so callers never pick collections by name themselves.
type Conn struct {
	client   *mongo.Client
	Comments *mongo.Collection
	// ArchivedComments is nil when no archive database is configured.
	ArchivedComments *mongo.Collection
}

// Open connects, pings and prepares the comment collections.
// archiveDatabase may be empty; the archive tier is then disabled.
func Open(ctx context.Context, url, database, archiveDatabase string) (*Conn, error) {
	if url == "" {
		return nil, errors.New("mongodb: url is required")
	}
	if database == "" {
		return nil, errors.New("mongodb: database is required")
	}

	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	c := &Conn{
		client:   cli,
		Comments: cli.Database(database).Collection(commentsCollection),
	}
	if archiveDatabase != "" {
		c.ArchivedComments = cli.Database(archiveDatabase).Collection(commentsCollection)
	}

	if err := c.ensureIndexes(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes covers the two find shapes the cache issues: full story
// fetch and direct replies of one parent.
func (c *Conn) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "story_id", Value: 1}},
			Options: options.Index().SetName("tenant_story"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "story_id", Value: 1}, {Key: "parent_id", Value: 1}},
			Options: options.Index().SetName("tenant_story_parent"),
		},
	}

	if _, err := c.Comments.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongodb ensure indexes: %w", err)
	}
	// Archived comments are written once by the archiver; indexes there are
	// the archiver's responsibility.
	return nil
}
