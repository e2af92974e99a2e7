package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// ConfigHeader carries the JSON-encoded connection settings of the mirror.
const ConfigHeader = "X-DB-Config"

// ErrNotConfigured is returned by mirror calls made without connection settings.
var ErrNotConfigured = errors.New("mirror is not configured")

// MirrorClient performs per-entry calls against the mirror proxy using the
// currently configured connection settings.
type MirrorClient struct {
	endpoint *url.URL
	http     *http.Client

	mu  sync.RWMutex
	cfg *models.ConnConfig
}

var _ SyncTarget = (*MirrorClient)(nil)

// NewMirrorClient builds a client for the proxy at rawURL. It starts unconfigured.
func NewMirrorClient(rawURL string, httpClient *http.Client) (*MirrorClient, error) {
	u, err := parseEndpoint(rawURL)
	if err != nil {
		return nil, err
	}
	return &MirrorClient{endpoint: u, http: defaultHTTPClient(httpClient)}, nil
}

// Name identifies the mirror target in logs.
func (c *MirrorClient) Name() string { return "mirror" }

// SetConfig replaces the connection settings; nil disables the mirror.
func (c *MirrorClient) SetConfig(cfg *models.ConnConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg == nil {
		c.cfg = nil
		return
	}
	v := cfg.WithDefaults()
	c.cfg = &v
}

// Config returns a copy of the current settings or nil.
func (c *MirrorClient) Config() *models.ConnConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg == nil {
		return nil
	}
	v := *c.cfg
	return &v
}

// Configured reports whether connection settings are present.
func (c *MirrorClient) Configured() bool {
	return c.Config() != nil
}

// Create inserts a single entry.
func (c *MirrorClient) Create(ctx context.Context, e models.Entry) error {
	return c.send(ctx, http.MethodPost, nil, models.ToJSON(e), nil)
}

// Delete removes the entry with the given id.
func (c *MirrorClient) Delete(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, url.Values{"id": {id}}, nil, nil)
}

// Upload replaces the mirror contents with entries.
func (c *MirrorClient) Upload(ctx context.Context, entries []models.Entry) error {
	body := models.Snapshot{Entries: models.EncodeEntries(entries)}
	return c.send(ctx, http.MethodPut, nil, body, nil)
}

// FetchAll returns every mirror row normalized into entries.
func (c *MirrorClient) FetchAll(ctx context.Context) ([]models.Entry, error) {
	var payload models.MirrorPayload
	if err := c.send(ctx, http.MethodGet, nil, nil, &payload); err != nil {
		return nil, err
	}
	entries := make([]models.Entry, 0, len(payload.Entries))
	for _, row := range payload.Entries {
		e, err := row.Entry()
		if err != nil {
			return nil, fmt.Errorf("invalid response: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Test checks that the proxy can reach the database described by cfg.
// The stored settings are not used or changed.
func (c *MirrorClient) Test(ctx context.Context, cfg models.ConnConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return c.call(ctx, cfg.WithDefaults(), http.MethodGet, nil, nil, nil)
}

// Fetch implements SyncTarget via FetchAll.
func (c *MirrorClient) Fetch(ctx context.Context) ([]models.Entry, error) { return c.FetchAll(ctx) }

// Publish implements SyncTarget via Upload.
func (c *MirrorClient) Publish(ctx context.Context, entries []models.Entry) error {
	return c.Upload(ctx, entries)
}

func (c *MirrorClient) send(ctx context.Context, method string, query url.Values, body, dest any) error {
	cfg := c.Config()
	if cfg == nil {
		return ErrNotConfigured
	}
	return c.call(ctx, *cfg, method, query, body, dest)
}

func (c *MirrorClient) call(ctx context.Context, cfg models.ConnConfig, method string, query url.Values, body, dest any) error {
	header, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	u := *c.endpoint
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}

	return doJSON(ctx, c.http, request{
		method: method,
		url:    &u,
		header: http.Header{ConfigHeader: {string(header)}},
		body:   body,
	}, dest)
}
