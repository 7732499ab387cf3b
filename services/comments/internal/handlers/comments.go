package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/comments-platform/internal/platform/api"
	"github.com/example/comments-platform/internal/platform/httpserver"
	"github.com/example/comments-platform/services/comments/internal/cache"
	"github.com/example/comments-platform/services/comments/internal/store"
)

// Deps carries the shared collaborators handlers wire into per-request
// cache instances.
type Deps struct {
	Store  store.CommentStore
	Remote cache.Remote
	Logger *zap.Logger
	TTL    time.Duration
}

func (d Deps) newCache() *cache.CommentCache {
	return cache.New(d.Store, d.Remote, d.Logger, d.TTL)
}

type ancestorsResponse struct {
	Comments []*store.Comment `json:"comments"`
}

// RootComments handles GET /v1/stories/{story_id}/comments
func RootComments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		tenantID, storyID, ok := storyScope(w, r)
		if !ok {
			return
		}
		filter, ok := parseFilter(w, r)
		if !ok {
			return
		}
		orderBy := cache.ParseOrder(r.URL.Query().Get("order"), cache.OrderCreatedAtDesc)

		conn, err := d.newCache().RootComments(r.Context(), tenantID, storyID, archivedParam(r), orderBy, filter)
		if err != nil {
			d.Logger.Error("root comments", zap.String("request_id", rid), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, conn)
	}
}

// GetComment handles GET /v1/stories/{story_id}/comments/{comment_id}
func GetComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		tenantID, storyID, ok := storyScope(w, r)
		if !ok {
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", rid, nil)
			return
		}

		comment, err := d.newCache().Find(r.Context(), tenantID, storyID, commentID)
		if err != nil {
			d.Logger.Error("get comment", zap.String("request_id", rid), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if comment == nil {
			api.NotFound(w, "NOT_FOUND", "comment not found", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, comment)
	}
}

// Ancestors handles GET /v1/stories/{story_id}/comments/{comment_id}/ancestors
func Ancestors(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		tenantID, storyID, ok := storyScope(w, r)
		if !ok {
			return
		}
		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", rid, nil)
			return
		}

		comments, err := d.newCache().FindAncestors(r.Context(), tenantID, storyID, commentID)
		if err != nil {
			d.Logger.Error("ancestors", zap.String("request_id", rid), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if comments == nil {
			comments = []*store.Comment{}
		}
		api.WriteJSON(w, http.StatusOK, ancestorsResponse{Comments: comments})
	}
}

// Replies handles GET /v1/stories/{story_id}/comments/{comment_id}/replies
func Replies(d Deps) http.HandlerFunc {
	return repliesHandler(d, false)
}

// FlattenedReplies handles GET /v1/stories/{story_id}/comments/{comment_id}/replies/flat
func FlattenedReplies(d Deps) http.HandlerFunc {
	return repliesHandler(d, true)
}

func repliesHandler(d Deps, flattened bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		tenantID, storyID, ok := storyScope(w, r)
		if !ok {
			return
		}
		parentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if parentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", rid, nil)
			return
		}
		filter, ok := parseFilter(w, r)
		if !ok {
			return
		}
		orderBy := cache.ParseOrder(r.URL.Query().Get("order"), cache.OrderCreatedAtAsc)

		cc := d.newCache()
		var (
			conn *cache.Connection
			err  error
		)
		if flattened {
			conn, err = cc.FlattenedReplies(r.Context(), tenantID, storyID, parentID, archivedParam(r), orderBy, filter)
		} else {
			conn, err = cc.Replies(r.Context(), tenantID, storyID, parentID, archivedParam(r), orderBy, filter)
		}
		if err != nil {
			d.Logger.Error("replies", zap.String("request_id", rid), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, conn)
	}
}

// storyScope extracts the (tenant, story) pair every cache key is scoped by.
func storyScope(w http.ResponseWriter, r *http.Request) (tenantID, storyID string, ok bool) {
	rid := httpserver.RequestIDFromContext(r.Context())

	tenantID = strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	if tenantID == "" {
		api.BadRequest(w, "MISSING_TENANT", "X-Tenant-Id header is required", rid, nil)
		return "", "", false
	}
	storyID = strings.TrimSpace(chi.URLParam(r, "story_id"))
	if storyID == "" {
		api.BadRequest(w, "MISSING_ID", "story_id is required", rid, nil)
		return "", "", false
	}
	return tenantID, storyID, true
}

func archivedParam(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("archived")), "true")
}

func parseFilter(w http.ResponseWriter, r *http.Request) (cache.Filter, bool) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var f cache.Filter
	q := r.URL.Query()

	f.Tag = strings.ToUpper(strings.TrimSpace(q.Get("tag")))

	if raw := strings.TrimSpace(q.Get("rating")); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			api.BadRequest(w, "INVALID_RATING", "rating must be an integer", rid, nil)
			return cache.Filter{}, false
		}
		f.Rating = rating
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := store.CommentStatus(strings.ToUpper(strings.TrimSpace(part)))
			switch status {
			case store.StatusNone, store.StatusApproved, store.StatusRejected,
				store.StatusPremod, store.StatusSystemWithheld:
				f.Statuses = append(f.Statuses, status)
			default:
				api.BadRequest(w, "INVALID_STATUS", "unknown comment status", rid,
					map[string]any{"status": part})
				return cache.Filter{}, false
			}
		}
	}

	return f, true
}
