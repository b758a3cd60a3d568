package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxFeedBytes bounds a single feed download.
const maxFeedBytes = 64 << 20

// ErrFeedUnavailable wraps every failure to obtain a feed body: connection
// errors, timeouts and non-200 answers.
var ErrFeedUnavailable = errors.New("feed unavailable")

// FeedClient downloads the ERP's tabular exports (orders, suppliers).
type FeedClient struct {
	httpClient *http.Client
}

func NewFeedClient(timeout time.Duration) *FeedClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &FeedClient{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch GETs url and returns the whole body.
func (c *FeedClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFeedUnavailable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrFeedUnavailable, url, err)
	}
	return body, nil
}
