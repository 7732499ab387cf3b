package cache

import (
	"sort"
	"time"

	"github.com/example/comments-platform/services/comments/internal/store"
)

// Order is a comment sort order.
type Order string

const (
	OrderCreatedAtAsc  Order = "CREATED_AT_ASC"
	OrderCreatedAtDesc Order = "CREATED_AT_DESC"
	OrderRepliesDesc   Order = "REPLIES_DESC"
	OrderReactionDesc  Order = "REACTION_DESC"
)

// ParseOrder maps a raw order string to a known Order, or fallback.
func ParseOrder(raw string, fallback Order) Order {
	switch Order(raw) {
	case OrderCreatedAtAsc, OrderCreatedAtDesc, OrderRepliesDesc, OrderReactionDesc:
		return Order(raw)
	default:
		return fallback
	}
}

// Filter narrows a bucket before sorting. Zero value matches everything;
// set fields compose with AND.
type Filter struct {
	Tag      string
	Rating   int
	Statuses []store.CommentStatus
}

func (f Filter) isZero() bool {
	return f.Tag == "" && f.Rating == 0 && len(f.Statuses) == 0
}

func (f Filter) match(c *store.Comment) bool {
	if f.Tag != "" && !c.HasTag(f.Tag) {
		return false
	}
	if f.Rating != 0 {
		// Ratings live in the 1-5 domain; a requested rating outside it
		// matches nothing, as does an unrated comment.
		if f.Rating < 1 || f.Rating > 5 {
			return false
		}
		if c.Rating != f.Rating {
			return false
		}
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if c.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func applyFilter(comments []*store.Comment, f Filter) []*store.Comment {
	if f.isZero() {
		return comments
	}
	out := make([]*store.Comment, 0, len(comments))
	for _, c := range comments {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// sortComments orders in place. Stable sort keeps ties in the underlying
// fetch order.
func sortComments(comments []*store.Comment, orderBy Order) []*store.Comment {
	sort.SliceStable(comments, func(i, j int) bool {
		a, b := comments[i], comments[j]
		switch orderBy {
		case OrderCreatedAtAsc:
			return a.CreatedAt.Before(b.CreatedAt)
		case OrderCreatedAtDesc:
			return b.CreatedAt.Before(a.CreatedAt)
		case OrderRepliesDesc:
			return b.ChildCount < a.ChildCount
		case OrderReactionDesc:
			return b.ActionCounts[store.ActionReaction] < a.ActionCounts[store.ActionReaction]
		default:
			return false
		}
	})
	return comments
}

// Edge pairs a comment with its cursor (the createdAt value, not an opaque
// token).
type Edge struct {
	Cursor time.Time      `json:"cursor"`
	Node   *store.Comment `json:"node"`
}

type PageInfo struct {
	StartCursor *time.Time `json:"start_cursor"`
	EndCursor   *time.Time `json:"end_cursor"`
	HasNextPage bool       `json:"has_next_page"`
	HasPrevPage bool       `json:"has_previous_page"`
}

// Connection is the paginated result shape. The cache serves single best
// effort pages: the page flags are always false and callers layering real
// pagination must track their own offsets.
type Connection struct {
	Edges    []Edge           `json:"edges"`
	Nodes    []*store.Comment `json:"nodes"`
	PageInfo PageInfo         `json:"page_info"`
}

func newConnection(comments []*store.Comment) *Connection {
	conn := &Connection{
		Edges: make([]Edge, 0, len(comments)),
		Nodes: make([]*store.Comment, 0, len(comments)),
	}
	for _, c := range comments {
		conn.Nodes = append(conn.Nodes, c)
		conn.Edges = append(conn.Edges, Edge{Cursor: c.CreatedAt, Node: c})
	}
	if n := len(conn.Edges); n > 0 {
		end := conn.Edges[n-1].Cursor
		conn.PageInfo.EndCursor = &end
	}
	return conn
}
