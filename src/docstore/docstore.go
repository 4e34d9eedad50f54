// Package docstore persists JSON documents addressed by slash-separated paths
// such as users/{email}/portfolio/{symbol}. A document's collection is its path
// minus the last segment.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Document is one stored record.
type Document struct {
	Path      string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ID is the last path segment, unescaped.
func (d Document) ID() string {
	_, id := split(d.Path)
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Store is the hierarchical document persistence used by the ledger and user records.
// Set creates or replaces a document, Delete of a missing path is a no-op and
// List returns the direct children of a collection ordered by path.
type Store interface {
	Set(ctx context.Context, path string, v any) error
	Get(ctx context.Context, path string, v any) error
	List(ctx context.Context, collection string) ([]Document, error)
	Delete(ctx context.Context, path string) error
}

// Path joins segments into a document or collection path, escaping each one
// so that user supplied values cannot add levels.
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

func split(path string) (collection, id string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func validPath(path string) bool {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return false
	}
	return !strings.Contains(path, "//")
}
