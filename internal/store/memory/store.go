// Package memory is an in-process data store for local plugin development
// and tests. Contents are lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const keySeparator = "\x00"

// Store keeps items in a sharded concurrent map keyed by entity type and id.
type Store struct {
	items cmap.ConcurrentMap[string, map[string]any]
}

// New creates an empty store.
func New() *Store {
	return &Store{items: cmap.New[map[string]any]()}
}

// Get returns a deep copy of the item under (entityType, id).
func (s *Store) Get(_ context.Context, entityType, id string) (map[string]any, bool, error) {
	item, ok := s.items.Get(storeKey(entityType, id))
	if !ok {
		return nil, false, nil
	}
	return withKey(item, entityType, id), true, nil
}

// Put stores a copy of item under (entityType, id).
func (s *Store) Put(_ context.Context, entityType, id string, item map[string]any) error {
	s.items.Set(storeKey(entityType, id), withKey(item, entityType, id))
	return nil
}

// Delete removes (entityType, id).
func (s *Store) Delete(_ context.Context, entityType, id string) error {
	s.items.Remove(storeKey(entityType, id))
	return nil
}

// ListIDs returns the sorted ids of entityType starting with idPrefix.
func (s *Store) ListIDs(_ context.Context, entityType, idPrefix string) ([]string, error) {
	prefix := storeKey(entityType, idPrefix)

	ids := []string{}
	for _, key := range s.items.Keys() {
		if strings.HasPrefix(key, prefix) {
			ids = append(ids, strings.TrimPrefix(key, entityType+keySeparator))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func storeKey(entityType, id string) string {
	return entityType + keySeparator + id
}

// withKey copies item, including nested maps and slices, so neither the
// caller's value nor the stored record can be changed through the other.
// Pointers and other slice or map types are shared.
func withKey(item map[string]any, entityType, id string) map[string]any {
	out := copyMap(item, 2)
	out["entityType"] = entityType
	out["id"] = id
	return out
}

func copyMap(m map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(m)+extra)
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v, 0)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, e := range v {
			out[k] = e
		}
		return out
	default:
		return v
	}
}
