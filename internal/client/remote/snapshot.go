package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// SnapshotClient pulls and pushes the whole diary to the snapshot endpoint.
type SnapshotClient struct {
	endpoint *url.URL
	http     *http.Client
}

var _ SyncTarget = (*SnapshotClient)(nil)

// NewSnapshotClient builds a client for the endpoint at rawURL.
// A nil httpClient gets a client with DefaultTimeout.
func NewSnapshotClient(rawURL string, httpClient *http.Client) (*SnapshotClient, error) {
	u, err := parseEndpoint(rawURL)
	if err != nil {
		return nil, err
	}
	return &SnapshotClient{endpoint: u, http: defaultHTTPClient(httpClient)}, nil
}

// Name identifies the snapshot target in logs.
func (c *SnapshotClient) Name() string { return "cloud" }

// Pull fetches the full collection in server order.
func (c *SnapshotClient) Pull(ctx context.Context) ([]models.Entry, error) {
	var payload models.Snapshot
	if err := doJSON(ctx, c.http, request{method: http.MethodGet, url: c.endpoint}, &payload); err != nil {
		return nil, err
	}
	entries, err := models.DecodeEntries(payload.Entries)
	if err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return entries, nil
}

// Push overwrites the remote snapshot with entries.
func (c *SnapshotClient) Push(ctx context.Context, entries []models.Entry) error {
	body := models.Snapshot{Entries: models.EncodeEntries(entries)}
	return doJSON(ctx, c.http, request{method: http.MethodPut, url: c.endpoint, body: body}, nil)
}

// Fetch implements SyncTarget via Pull.
func (c *SnapshotClient) Fetch(ctx context.Context) ([]models.Entry, error) { return c.Pull(ctx) }

// Publish implements SyncTarget via Push.
func (c *SnapshotClient) Publish(ctx context.Context, entries []models.Entry) error {
	return c.Push(ctx, entries)
}
