package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/comments-platform/internal/platform/api"
	"github.com/example/comments-platform/services/comments/internal/cache"
	"github.com/example/comments-platform/services/comments/internal/store"
)

func newTestServer(st *store.InMemoryCommentStore) *httptest.Server {
	d := Deps{
		Store:  st,
		Remote: cache.NewMemoryRemote(),
		Logger: zap.NewNop(),
		TTL:    time.Hour,
	}

	r := chi.NewRouter()
	r.Route("/v1/stories/{story_id}/comments", func(r chi.Router) {
		r.Get("/", RootComments(d))
		r.Get("/{comment_id}", GetComment(d))
		r.Get("/{comment_id}/ancestors", Ancestors(d))
		r.Get("/{comment_id}/replies", Replies(d))
		r.Get("/{comment_id}/replies/flat", FlattenedReplies(d))
	})
	return httptest.NewServer(r)
}

func seedStory(st *store.InMemoryCommentStore) {
	base := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	st.Put(store.Comment{
		ID: "r1", TenantID: "t1", StoryID: "s1",
		Status: store.StatusApproved, CreatedAt: base,
	})
	st.Put(store.Comment{
		ID: "r2", TenantID: "t1", StoryID: "s1",
		Status: store.StatusApproved, ChildCount: 1,
		CreatedAt: base.Add(time.Minute),
	})
	pid := "r2"
	st.Put(store.Comment{
		ID: "c1", TenantID: "t1", StoryID: "s1",
		ParentID: &pid, AncestorIDs: []string{"r2"},
		Status: store.StatusApproved, CreatedAt: base.Add(2 * time.Minute),
	})
}

func get(t *testing.T, srv *httptest.Server, path string, tenant string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if tenant != "" {
		req.Header.Set("X-Tenant-Id", tenant)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeConnection(t *testing.T, resp *http.Response) cache.Connection {
	t.Helper()
	defer resp.Body.Close()
	var conn cache.Connection
	if err := json.NewDecoder(resp.Body).Decode(&conn); err != nil {
		t.Fatalf("decode connection: %v", err)
	}
	return conn
}

func decodeError(t *testing.T, resp *http.Response) api.ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	var er api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return er
}

func nodeIDs(conn cache.Connection) []string {
	out := make([]string, len(conn.Nodes))
	for i, n := range conn.Nodes {
		out[i] = n.ID
	}
	return out
}

func TestRootComments_MissingTenant(t *testing.T) {
	srv := newTestServer(store.NewInMemoryCommentStore())
	defer srv.Close()

	resp := get(t, srv, "/v1/stories/s1/comments", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); er.Error.Code != "MISSING_TENANT" {
		t.Fatalf("expected MISSING_TENANT, got %q", er.Error.Code)
	}
}

func TestRootComments_DefaultOrderDesc(t *testing.T) {
	st := store.NewInMemoryCommentStore()
	seedStory(st)
	srv := newTestServer(st)
	defer srv.Close()

	resp := get(t, srv, "/v1/stories/s1/comments", "t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	conn := decodeConnection(t, resp)
	got := nodeIDs(conn)
	if len(got) != 2 || got[0] != "r2" || got[1] != "r1" {
		t.Fatalf("expected [r2 r1], got %v", got)
	}
	if conn.PageInfo.EndCursor == nil {
		t.Fatal("expected an end cursor")
	}
	if conn.PageInfo.HasNextPage || conn.PageInfo.HasPrevPage {
		t.Fatal("page flags must be false")
	}
}

func TestRootComments_ExplicitOrderAsc(t *testing.T) {
	st := store.NewInMemoryCommentStore()
	seedStory(st)
	srv := newTestServer(st)
	defer srv.Close()

	resp := get(t, srv, "/v1/stories/s1/comments?order=CREATED_AT_ASC", "t1")
	conn := decodeConnection(t, resp)
	got := nodeIDs(conn)
	if len(got) != 2 || got[0] != "r1" || got[1] != "r2" {
		t.Fatalf("expected [r1 r2], got %v", got)
	}
}

func TestRootComments_InvalidRating(t *testing.T) {
	srv := newTestServer(store.NewInMemoryCommentStore())
	defer srv.Close()

	resp := get(t, srv, "/v1/stories/s1/comments?rating=abc", "t1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); er.Error.Code != "INVALID_RATING" {
		t.Fatalf("expected INVALID_RATING, got %q", er.Error.Code)
	}
}

func TestRootComments_InvalidStatus(t *testing.T) {
	srv := newTestServer(store.NewInMemoryCommentStore())
	defer srv.Close()

	resp := get(t, srv, "/v1/stories/s1/comments?status=APPROVED,BOGUS", "t1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); er.Error.Code != "INVALID_STATUS" {
		t.Fatalf("expected INVALID_STATUS, got %q", er.Error.Code)
	}
}

func TestGetComment(t *testing.T) {
	st := store.NewInMemoryCommentStore()
	seedStory(st)
	srv := newTestServer(st)
	defer srv.Close()

	// Materialize via the roots endpoint, then resolve a single comment.
	get(t, srv, "/v1/stories/s1/comments", "t1").Body.Close()

	resp := get(t, srv, "/v1/stories/s1/comments/r1", "t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var comment store.Comment
	if err := json.NewDecoder(resp.Body).Decode(&comment); err != nil {
		t.Fatalf("decode comment: %v", err)
	}
	resp.Body.Close()
	if comment.ID != "r1" {
		t.Fatalf("expected r1, got %q", comment.ID)
	}

	resp = get(t, srv, "/v1/stories/s1/comments/unknown", "t1")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if er := decodeError(t, resp); er.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %q", er.Error.Code)
	}
}

func TestReplies(t *testing.T) {
	st := store.NewInMemoryCommentStore()
	seedStory(st)
	srv := newTestServer(st)
	defer srv.Close()

	get(t, srv, "/v1/stories/s1/comments", "t1").Body.Close()

	resp := get(t, srv, "/v1/stories/s1/comments/r2/replies", "t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	conn := decodeConnection(t, resp)
	got := nodeIDs(conn)
	if len(got) != 1 || got[0] != "c1" {
		t.Fatalf("expected [c1], got %v", got)
	}
}

func TestAncestors(t *testing.T) {
	st := store.NewInMemoryCommentStore()
	seedStory(st)
	srv := newTestServer(st)
	defer srv.Close()

	get(t, srv, "/v1/stories/s1/comments", "t1").Body.Close()

	resp := get(t, srv, "/v1/stories/s1/comments/c1/ancestors", "t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	var body struct {
		Comments []*store.Comment `json:"comments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode ancestors: %v", err)
	}
	if len(body.Comments) != 1 || body.Comments[0].ID != "r2" {
		t.Fatalf("expected [r2], got %v", body.Comments)
	}
}

func TestFlattenedReplies(t *testing.T) {
	st := store.NewInMemoryCommentStore()
	seedStory(st)
	srv := newTestServer(st)
	defer srv.Close()

	get(t, srv, "/v1/stories/s1/comments", "t1").Body.Close()

	resp := get(t, srv, "/v1/stories/s1/comments/r2/replies/flat", "t1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	conn := decodeConnection(t, resp)
	got := nodeIDs(conn)
	if len(got) != 1 || got[0] != "c1" {
		t.Fatalf("expected [c1], got %v", got)
	}
}
