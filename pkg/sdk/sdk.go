package sdk

import (
	"context"
	"net/http"
	"strings"
	"time"

	dserrors "github.com/JWThewes/MicroPress-Plugin-SDK/internal/errors"
	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/metrics"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/audit"
	"github.com/JWThewes/MicroPress-Plugin-SDK/pkg/editor"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultAssetURLTTL = 15 * time.Minute
)

// Config holds the settings the host supplies when it instantiates a plugin.
type Config struct {
	// PluginID identifies the owning plugin. Required; must not contain '#'.
	PluginID string
	// TableName and Region locate the shared data table (used by NewAWS).
	TableName string
	Region    string
	// AssetBucket holds plugin assets (plugins/<PluginID>/<assetID>).
	AssetBucket string
	// PluginConfig is the installed plugin's configuration.
	PluginConfig map[string]any

	// HTTPTimeout bounds each outbound request; zero means 30s.
	HTTPTimeout time.Duration
	// RateLimit and RateWindow configure the per-host fixed window; zero
	// means 100 requests per 60s.
	RateLimit  int
	RateWindow time.Duration
	// AssetURLTTL is the lifetime of presigned asset URLs; zero means 15m.
	AssetURLTTL time.Duration
	// EnableMetrics registers Prometheus collectors.
	EnableMetrics bool
}

// DataStore is the shared key-value store holding plugin data and host
// content. Items are attribute maps; Get reports absence with found=false.
type DataStore interface {
	Get(ctx context.Context, entityType, id string) (item map[string]any, found bool, err error)
	Put(ctx context.Context, entityType, id string, item map[string]any) error
	Delete(ctx context.Context, entityType, id string) error
	ListIDs(ctx context.Context, entityType, idPrefix string) ([]string, error)
}

// SecretStore fetches parameters by hierarchical path. A missing parameter
// is reported with found=false and a nil error.
type SecretStore interface {
	GetParameter(ctx context.Context, name string, withDecryption bool) (value string, found bool, err error)
}

// AssetSigner creates time-limited download URLs for stored objects.
type AssetSigner interface {
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// HTTPClient is the outbound transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SDK mediates one plugin's access to data, secrets, assets and the
// network. The plugin identity is fixed at construction.
type SDK struct {
	pluginID    string
	assetBucket string
	config      map[string]any
	httpTimeout time.Duration
	assetTTL    time.Duration

	data    DataStore
	secrets SecretStore
	assets  AssetSigner
	client  HTTPClient
	sink    audit.Sink
	editor  *editor.Runtime
	metrics *metrics.Recorder

	now     func() time.Time
	limiter *hostLimiter
}

// Option configures an SDK.
type Option func(*SDK)

// WithDataStore sets the data store.
func WithDataStore(store DataStore) Option {
	return func(s *SDK) {
		s.data = store
	}
}

// WithSecretStore sets the secret store.
func WithSecretStore(store SecretStore) Option {
	return func(s *SDK) {
		s.secrets = store
	}
}

// WithAssetSigner sets the asset URL signer.
func WithAssetSigner(signer AssetSigner) Option {
	return func(s *SDK) {
		s.assets = signer
	}
}

// WithAuditSink sets where audit records go. Defaults to stdout/stderr.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *SDK) {
		s.sink = sink
	}
}

// WithHTTPClient sets the outbound transport (for testing).
func WithHTTPClient(client HTTPClient) Option {
	return func(s *SDK) {
		s.client = client
	}
}

// WithEditor attaches the host's editor runtime.
func WithEditor(rt *editor.Runtime) Option {
	return func(s *SDK) {
		s.editor = rt
	}
}

// WithClock replaces time.Now (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *SDK) {
		s.now = now
	}
}

// New creates an SDK for cfg.PluginID. It performs no I/O.
func New(cfg Config, opts ...Option) (*SDK, error) {
	if err := validatePluginID(cfg.PluginID); err != nil {
		return nil, err
	}

	s := &SDK{
		pluginID:    cfg.PluginID,
		assetBucket: cfg.AssetBucket,
		config:      copyMap(cfg.PluginConfig),
		httpTimeout: cfg.HTTPTimeout,
		assetTTL:    cfg.AssetURLTTL,
		metrics:     metrics.NewRecorder(),
		now:         time.Now,
	}
	if s.httpTimeout <= 0 {
		s.httpTimeout = DefaultHTTPTimeout
	}
	if s.assetTTL <= 0 {
		s.assetTTL = DefaultAssetURLTTL
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sink == nil {
		s.sink = audit.NewWriterSink()
	}
	if s.client == nil {
		s.client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	s.limiter = newHostLimiter(cfg.RateLimit, cfg.RateWindow, s.now)

	if cfg.EnableMetrics {
		metrics.InitMetrics()
	}

	return s, nil
}

func validatePluginID(id string) error {
	if id == "" {
		return dserrors.ConfigError{
			Field:      "pluginId",
			Message:    "plugin id is required",
			Suggestion: "Set the plugin id from the plugin manifest",
		}
	}
	if strings.Contains(id, keySeparator) {
		return dserrors.ConfigError{
			Field:      "pluginId",
			Value:      id,
			Message:    "plugin id must not contain '" + keySeparator + "'",
			Suggestion: "Plugin ids are used as key prefixes; use letters, digits, '-', '_' or ':'",
		}
	}
	return nil
}

// PluginID returns the owning plugin's identity.
func (s *SDK) PluginID() string {
	return s.pluginID
}

// Config returns a copy of the installed plugin configuration.
func (s *SDK) Config() map[string]any {
	return copyMap(s.config)
}

// Editor returns the host editor runtime.
func (s *SDK) Editor() (*editor.Runtime, error) {
	if s.editor == nil {
		return nil, ErrEditorUnavailable
	}
	return s.editor, nil
}

// Log emits an audit record on behalf of the plugin. Unknown levels are
// recorded as info.
func (s *SDK) Log(level audit.Level, message string, meta map[string]any) {
	if !level.Valid() {
		level = audit.LevelInfo
	}
	s.sink.Emit(audit.Record{
		Timestamp: s.now().UTC(),
		PluginID:  s.pluginID,
		Level:     level,
		Message:   message,
		Meta:      meta,
	})
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
