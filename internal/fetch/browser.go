package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/amishk599/autocareer/internal/model"
)

// BrowserFetcher renders pages in headless Chrome, for boards that build
// their listings client-side.
type BrowserFetcher struct {
	userAgent string
	settle    time.Duration
	logger    *slog.Logger
}

// NewBrowserFetcher creates a fetcher that waits settle after the body is
// ready before reading the DOM.
func NewBrowserFetcher(userAgent string, settle time.Duration, logger *slog.Logger) *BrowserFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &BrowserFetcher{userAgent: userAgent, settle: settle, logger: logger}
}

// Fetch launches a browser for the duration of one page load.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string, format model.Format) (model.Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html, location string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return model.Page{}, fmt.Errorf("browser fetch %s: %w", url, err)
	}

	f.logger.Debug("rendered page", "url", url, "final_url", location, "bytes", len(html))
	return render(html, "text/html", location, format)
}
