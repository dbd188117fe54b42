package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	appLog "hacktown/internal/log"
)

// DefaultBrowserTimeout bounds a whole headless page load.
const DefaultBrowserTimeout = 30 * time.Second

// BrowserFetcher loads the document in headless Chromium via chromedp and
// returns the rendered markup. It is meant for published documents that
// build their tables with script.
type BrowserFetcher struct {
	timeout time.Duration

	// ReadySelector is waited on before the markup is read.
	ReadySelector string
}

// NewBrowserFetcher creates a BrowserFetcher. A zero timeout uses
// DefaultBrowserTimeout.
func NewBrowserFetcher(timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	return &BrowserFetcher{timeout: timeout, ReadySelector: "table"}
}

// Fetch navigates to url, waits until ReadySelector is present and returns
// the document's outer HTML. Failures are returned as *FetchError.
func (f *BrowserFetcher) Fetch(parentCtx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, &FetchError{URL: url, Err: errors.New("source URL is empty")}
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, f.timeout)
	defer timeoutCancel()

	appLog.Info("schedule browser fetch start", "url", redactURL(url))

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady(f.ReadySelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("chromedp run failed: %w", err)}
	}

	appLog.Info("schedule browser fetch success", "url", redactURL(url), "bytes", len(html))
	return []byte(html), nil
}
