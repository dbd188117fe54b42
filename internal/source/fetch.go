package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hacktown/internal/config"
	appLog "hacktown/internal/log"
)

// Fetcher retrieves the raw markup of the published schedule.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchError reports a failure to retrieve the source document. It is fatal
// to dataset initialization; nothing retries it.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", redactURL(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", redactURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPFetcher fetches the document with a single GET request.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout uses 15 seconds.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// New returns the fetcher selected by cfg.FetchMode.
func New(cfg *config.Config) Fetcher {
	if cfg.FetchMode == config.FetchModeBrowser {
		return NewBrowserFetcher(cfg.FetchTimeout())
	}
	return NewHTTPFetcher(cfg.FetchTimeout(), cfg.UserAgent)
}

// Fetch returns the full response body. Any transport failure or non-2xx
// status is returned as *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, &FetchError{URL: url, Err: errors.New("source URL is empty")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	appLog.Info("schedule fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	appLog.Info("schedule fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// redactURL hides the path and query of a URL for logging purposes. The
// published-sheet id in the path is effectively a capability.
//
//	https://docs.google.com/spreadsheets/d/e/XYZ/pubhtml -> https://docs.google.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "url://...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	return u[:j] + redactedSuffix
}
