package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/example/comments-platform/services/comments/internal/store"
)

func TestCodec_RoundTrip(t *testing.T) {
	parentID := "parent-1"
	created := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)

	in := &store.Comment{
		ID:          "c1",
		TenantID:    "t1",
		StoryID:     "s1",
		AuthorID:    "u1",
		ParentID:    &parentID,
		AncestorIDs: []string{"root-1", "parent-1"},
		Body:        "a comment body that should survive compression",
		Status:      store.StatusApproved,
		Tags: []store.CommentTag{
			{Type: store.TagFeatured, CreatedAt: created},
		},
		Rating:       4,
		ChildCount:   2,
		ActionCounts: map[string]int{store.ActionReaction: 7},
		CreatedAt:    created,
	}

	raw, err := serializeComment(in)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	out, err := deserializeComment(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if out.ID != in.ID || out.TenantID != in.TenantID || out.StoryID != in.StoryID {
		t.Fatalf("identity fields mismatch: %+v", out)
	}
	if out.ParentID == nil || *out.ParentID != parentID {
		t.Fatalf("expected parent %q, got %v", parentID, out.ParentID)
	}
	if len(out.AncestorIDs) != 2 || out.AncestorIDs[0] != "root-1" {
		t.Fatalf("ancestor ids mismatch: %v", out.AncestorIDs)
	}
	if out.Body != in.Body || out.Status != in.Status || out.Rating != in.Rating {
		t.Fatalf("content fields mismatch: %+v", out)
	}
	if out.ChildCount != 2 || out.ActionCounts[store.ActionReaction] != 7 {
		t.Fatalf("count fields mismatch: %+v", out)
	}
	// CreatedAt must come back as a real timestamp, comparing equal as time.
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("expected createdAt %s, got %s", in.CreatedAt, out.CreatedAt)
	}
}

func TestCodec_RootComment_NilParent(t *testing.T) {
	in := &store.Comment{
		ID:        "root-1",
		TenantID:  "t1",
		StoryID:   "s1",
		Status:    store.StatusNone,
		CreatedAt: time.Now().UTC(),
	}

	raw, err := serializeComment(in)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	out, err := deserializeComment(raw)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if out.ParentID != nil {
		t.Fatalf("expected nil parent, got %v", *out.ParentID)
	}
}

func TestCodec_CorruptPayload(t *testing.T) {
	cases := map[string]string{
		"not base64":      "%%%not-base64%%%",
		"not zstd":        "bm90IHpzdGQgZGF0YQ==",
		"empty":           "",
		"truncated frame": "KLUv",
	}

	for name, payload := range cases {
		if _, err := deserializeComment(payload); !errors.Is(err, ErrDeserialize) {
			t.Fatalf("%s: expected ErrDeserialize, got %v", name, err)
		}
	}
}
