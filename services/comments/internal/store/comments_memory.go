package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a development and test implementation. It keeps
// separate live and archived partitions to mirror the Mongo adapter.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	live     []Comment
	archived []Comment
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{}
}

// Put seeds a comment into the live partition, assigning an ID if absent.
func (s *InMemoryCommentStore) Put(c Comment) Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.live = append(s.live, c)
	return c
}

// PutArchived seeds a comment into the archived partition.
func (s *InMemoryCommentStore) PutArchived(c Comment) Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.archived = append(s.archived, c)
	return c
}

func (s *InMemoryCommentStore) ForStory(_ context.Context, tenantID, storyID string, archived bool) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.partition(archived) {
		if c.TenantID == tenantID && c.StoryID == storyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *InMemoryCommentStore) RepliesTo(_ context.Context, tenantID, storyID, parentID string, archived bool) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.partition(archived) {
		if c.TenantID == tenantID && c.StoryID == storyID &&
			c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// partition mirrors the Mongo adapter: the archived tier is always present
// in memory, so archived simply selects it.
func (s *InMemoryCommentStore) partition(archived bool) []Comment {
	if archived {
		return s.archived
	}
	return s.live
}
