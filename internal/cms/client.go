package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// MaxRetries bounds the backoff loop. Content fetches are read-only,
	// so retrying is safe.
	MaxRetries uint64
}

// Entry is the descriptive copy a show or course page renders. The CMS
// owns it; the booking flow never depends on these fields.
type Entry struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url"`
}

// Client reads descriptive content from the headless CMS over HTTP.
// Lookups retry with bounded exponential backoff; callers layer caching
// on top and degrade to stale or empty content on failure.
type Client struct {
	httpc      *http.Client
	baseURL    string
	token      string
	maxRetries uint64
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &Client{
		httpc:      &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		maxRetries: maxRetries,
	}
}

// GetEntry fetches one entry by content type and slug.
func (c *Client) GetEntry(ctx context.Context, contentType, slug string) (*Entry, error) {
	const op = "cms.Client.GetEntry"

	var entry Entry
	path := fmt.Sprintf("/entries/%s/%s", url.PathEscape(contentType), url.PathEscape(slug))
	if err := c.getJSON(ctx, path, &entry); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &entry, nil
}

// ListEntries fetches all entries of one content type.
func (c *Client) ListEntries(ctx context.Context, contentType string) ([]Entry, error) {
	const op = "cms.Client.ListEntries"

	var entries []Entry
	path := "/entries/" + url.PathEscape(contentType)
	if err := c.getJSON(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("content not found: %s", path))
		case resp.StatusCode >= 500:
			return fmt.Errorf("cms responded %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("cms responded %d", resp.StatusCode))
		}

		return json.NewDecoder(resp.Body).Decode(out)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)

	return backoff.Retry(operation, bo)
}
