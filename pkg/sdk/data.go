package sdk

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Entity types in the shared table.
const (
	EntityPluginData = "plugin-data"
	EntityPage       = "page"
	EntityNews       = "news"
)

// keySeparator joins the plugin identity and the caller key. Plugin ids may
// not contain it, so the first separator always ends the identity.
const keySeparator = "#"

// NamespacedKey returns key scoped to this plugin.
func (s *SDK) NamespacedKey(key string) string {
	return s.pluginID + keySeparator + key
}

func (s *SDK) keyPrefix() string {
	return s.pluginID + keySeparator
}

func requireKey(key string) error {
	if key == "" {
		return &InvalidRequestError{Field: "data key", Reason: "must not be empty"}
	}
	return nil
}

// GetData returns the value stored under key, or found=false. Both bundled
// stores return a copy, so mutating the value does not change the stored
// record.
func (s *SDK) GetData(ctx context.Context, key string) (any, bool, error) {
	if s.data == nil {
		return nil, false, ErrDataUnavailable
	}
	if err := requireKey(key); err != nil {
		return nil, false, err
	}

	item, found, err := s.data.Get(ctx, EntityPluginData, s.NamespacedKey(key))
	if err != nil || !found {
		return nil, false, err
	}
	return item["data"], true, nil
}

// PutData stores value under key, replacing any previous value.
func (s *SDK) PutData(ctx context.Context, key string, value any) error {
	if s.data == nil {
		return ErrDataUnavailable
	}
	if err := requireKey(key); err != nil {
		return err
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	return s.data.Put(ctx, EntityPluginData, s.NamespacedKey(key), map[string]any{
		"metadataType": "current",
		"data":         value,
		"createdAt":    now,
		"updatedAt":    now,
	})
}

// DeleteData removes key. Deleting a missing key is not an error.
func (s *SDK) DeleteData(ctx context.Context, key string) error {
	if s.data == nil {
		return ErrDataUnavailable
	}
	if err := requireKey(key); err != nil {
		return err
	}
	return s.data.Delete(ctx, EntityPluginData, s.NamespacedKey(key))
}

// ListData returns this plugin's keys starting with prefix, without the
// plugin namespace. An empty prefix lists every key.
func (s *SDK) ListData(ctx context.Context, prefix string) ([]string, error) {
	if s.data == nil {
		return nil, ErrDataUnavailable
	}

	ids, err := s.data.ListIDs(ctx, EntityPluginData, s.keyPrefix()+prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if k, ok := strings.CutPrefix(id, s.keyPrefix()); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// GetPage returns a host page by id.
func (s *SDK) GetPage(ctx context.Context, pageID string) (map[string]any, bool, error) {
	return s.getContent(ctx, EntityPage, pageID)
}

// GetNews returns a host news entry by id.
func (s *SDK) GetNews(ctx context.Context, newsID string) (map[string]any, bool, error) {
	return s.getContent(ctx, EntityNews, newsID)
}

func (s *SDK) getContent(ctx context.Context, entityType, id string) (map[string]any, bool, error) {
	if s.data == nil {
		return nil, false, ErrDataUnavailable
	}
	return s.data.Get(ctx, entityType, id)
}

// GetAssetURL returns a presigned download URL for one of this plugin's
// assets.
func (s *SDK) GetAssetURL(ctx context.Context, assetID string) (string, error) {
	if s.assets == nil || s.assetBucket == "" {
		return "", ErrAssetsUnavailable
	}
	if assetID == "" || strings.Contains(assetID, "..") {
		return "", &InvalidRequestError{Field: "asset id", Reason: fmt.Sprintf("%q is not a plugin asset path", assetID)}
	}

	key := "plugins/" + s.pluginID + "/" + strings.TrimPrefix(assetID, "/")
	return s.assets.PresignGet(ctx, s.assetBucket, key, s.assetTTL)
}
