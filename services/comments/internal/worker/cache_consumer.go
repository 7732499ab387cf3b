package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/comments-platform/services/comments/internal/cache"
	"github.com/example/comments-platform/services/comments/internal/store"
)

// CommentEvent is the payload published by the submission and moderation
// services on comments.events.* subjects. It carries the full comment so
// the cache never has to read back on ingest.
type CommentEvent struct {
	EventID string        `json:"event_id"`
	Comment store.Comment `json:"comment"`
}

// Deps carries the shared collaborators the consumer builds cache
// instances from.
type Deps struct {
	Store  store.CommentStore
	Remote cache.Remote
	Logger *zap.Logger
	TTL    time.Duration
}

// StartCacheConsumer pull-subscribes comments.events.* and applies each
// event to the comment cache. Creation and status-change events share the
// same shape; cache.Update ignores anything outside the published subset.
func StartCacheConsumer(ctx context.Context, nc *nats.Conn, d Deps) {
	log := d.Logger

	js, err := nc.JetStream()
	if err != nil {
		log.Error("cache consumer: jetstream", zap.Error(err))
		return
	}

	sub, err := js.PullSubscribe("comments.events.*", "comment_cache")
	if err != nil {
		log.Error("cache consumer: subscribe", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := sub.Fetch(100, nats.MaxWait(2*time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			log.Error("cache consumer: fetch", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// One cache instance per batch; its memo dies with the batch.
		cc := cache.New(d.Store, d.Remote, log, d.TTL)

		for _, m := range msgs {
			var ev CommentEvent
			if err := json.Unmarshal(m.Data, &ev); err != nil {
				// Malformed events are not retryable.
				log.Warn("cache consumer: invalid event",
					zap.String("subject", m.Subject), zap.Error(err))
				if err := m.Ack(); err != nil {
					log.Warn("cache consumer: ack", zap.Error(err))
				}
				continue
			}

			if err := cc.Update(ctx, &ev.Comment); err != nil {
				log.Error("cache consumer: update",
					zap.String("event_id", ev.EventID),
					zap.String("comment_id", ev.Comment.ID),
					zap.Error(err))
				if err := m.Nak(); err != nil {
					log.Warn("cache consumer: nak", zap.Error(err))
				}
				continue
			}

			if err := m.Ack(); err != nil {
				log.Warn("cache consumer: ack", zap.Error(err))
			}
		}
	}
}
