package cache

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/example/comments-platform/services/comments/internal/store"
)

// ErrDeserialize marks a corrupt or schema-incompatible cached payload.
// Callers treat it as a cache miss, never as a fatal error.
var ErrDeserialize = errors.New("comment cache: cannot deserialize payload")

// Shared zstd coders; both are safe for concurrent use via EncodeAll/DecodeAll.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// serializeComment encodes a comment as compressed JSON. Compression trades
// CPU for cache footprint; comment bodies compress well.
func serializeComment(c *store.Comment) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize comment %s: %w", c.ID, err)
	}
	compressed := zstdEncoder.EncodeAll(raw, nil)
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// deserializeComment is the inverse of serializeComment. CreatedAt comes back
// as a proper time.Time via the JSON round-trip.
func deserializeComment(data string) (*store.Comment, error) {
	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	raw, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	var c store.Comment
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return &c, nil
}
