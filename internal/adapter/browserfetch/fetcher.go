package browserfetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/proxy"
	"github.com/user/election-scraper/internal/repository"
)

const defaultPageLoadTimeout = 20 * time.Second

// Fetcher renders pages in headless Chrome and returns the serialized DOM.
type Fetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	closeTabs   context.CancelFunc
	startOnce   sync.Once
	startErr    error
	timeout     time.Duration
	logger      *zap.Logger
}

// NewFetcher starts a headless browser allocator. The browser process itself
// is launched on the first Fetch. agents may be nil.
func NewFetcher(pageLoadTimeout time.Duration, agents *proxy.Manager, l *zap.Logger) *Fetcher {
	if pageLoadTimeout == 0 {
		pageLoadTimeout = defaultPageLoadTimeout
	}
	if agents == nil {
		agents = proxy.NewManager(nil, "")
	}
	if l == nil {
		l = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(agents.GetUserAgent()),
	)
	if p := agents.GetProxy(); p != nil {
		opts = append(opts, chromedp.ProxyServer(p.String()))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	sugar := l.Sugar()
	browserCtx, closeTabs := chromedp.NewContext(allocCtx, chromedp.WithLogf(sugar.Debugf), chromedp.WithErrorf(sugar.Errorf))

	return &Fetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		closeTabs:   closeTabs,
		timeout:     pageLoadTimeout,
		logger:      l,
	}
}

// Fetch navigates a fresh tab to url and returns the outer HTML of the document.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.start(); err != nil {
		return "", fmt.Errorf("%w: %s: start browser: %w", repository.ErrFetchFailed, url, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	// Propagate cancellation of the caller into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	start := time.Now()
	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return "", fmt.Errorf("%w: %s: navigate: %w", repository.ErrFetchFailed, url, err)
	}
	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("%w: %s: %w", repository.ErrFetchFailed, url, err)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: %s: read document: %w", repository.ErrFetchFailed, url, err)
	}

	f.logger.Debug("Rendered page", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))
	return html, nil
}

// start launches the browser once so that closing a tab never closes the browser.
func (f *Fetcher) start() error {
	f.startOnce.Do(func() {
		f.startErr = chromedp.Run(f.browserCtx)
	})
	return f.startErr
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	f.closeTabs()
	f.allocCancel()
}

func checkStatus(resp *network.Response) error {
	if resp == nil {
		return nil
	}
	if resp.Status < 200 || resp.Status > 299 {
		return fmt.Errorf("%w: %d", repository.ErrUnexpectedStatus, resp.Status)
	}
	return nil
}
