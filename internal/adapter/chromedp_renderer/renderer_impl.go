package chromedp_renderer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/user/pricewatch-service/internal/repository"
	"go.uber.org/zap"
)

// Selectors that indicate the price block has been rendered.
var priceSelectors = []string{
	"#corePrice_feature_div .a-offscreen",
	".a-price .a-offscreen",
	"[data-qa='div-price-now']",
	".priceNow",
	".prc-box-dscntd",
	".-b.-ltr.-tal.-fs24",
	".x-price-primary",
	".product-price-value",
	"[itemprop='price']",
	"meta[property='product:price:amount']",
	"[data-price]",
}

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Options tunes a Renderer.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	IdleWait     time.Duration
	SelectorWait time.Duration
	DelayMin     time.Duration
	DelayMax     time.Duration
}

var errRendererClosed = errors.New("renderer closed")

// Renderer loads pages in a shared headless Chrome, one tab per render.
type Renderer struct {
	opts      Options
	allocOpts []chromedp.ExecAllocatorOption
	logger    *zap.Logger
	// launch starts the browser behind a fresh browser context.
	launch func(ctx context.Context) error

	mu            sync.Mutex
	closed        bool
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewRenderer prepares the browser options. Chrome itself is launched on
// the first render and relaunched after it exits or fails to start.
func NewRenderer(opts Options, logger *zap.Logger) *Renderer {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1280, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	return &Renderer{
		opts:      opts,
		allocOpts: allocOpts,
		logger:    logger,
		launch: func(ctx context.Context) error {
			// Running with no actions launches the browser and its first tab.
			return chromedp.Run(ctx)
		},
	}
}

// browser returns a live browser context, launching Chrome when there is
// none yet or the previous one has ended. A failed launch is not cached.
func (r *Renderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRendererClosed
	}
	if r.browserCtx != nil {
		if r.browserCtx.Err() == nil {
			return r.browserCtx, nil
		}
		r.logger.Warn("browser exited, relaunching")
		r.release()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), r.allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug("chromedp", zap.String("message", fmt.Sprintf(format, args...)))
	}))
	if err := r.launch(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, err
	}

	r.browserCtx, r.cancelBrowser, r.cancelAlloc = browserCtx, cancelBrowser, cancelAlloc
	return browserCtx, nil
}

// release tears down the current browser. Callers hold r.mu.
func (r *Renderer) release() {
	if r.browserCtx == nil {
		return
	}
	r.cancelBrowser()
	r.cancelAlloc()
	r.browserCtx, r.cancelBrowser, r.cancelAlloc = nil, nil, nil
}

// RenderDynamic navigates to url in a new tab, waits for the network to go
// idle and for a price element to appear (both bounded), pauses briefly and
// returns the serialized DOM.
func (r *Renderer) RenderDynamic(ctx context.Context, url string) (string, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return "", fmt.Errorf("%w: start browser: %w", repository.ErrRenderFailed, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.opts.Timeout)
	defer cancelTimeout()

	// The tab hangs off the browser, not ctx; tie their lifetimes together.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	start := time.Now()
	err = chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
	)
	if err != nil {
		return "", r.fail(ctx, url, "navigate", err)
	}

	r.waitIdle(tabCtx, idle)
	found := r.waitPrice(tabCtx)

	if err := sleepContext(tabCtx, r.delay()); err != nil {
		return "", r.fail(ctx, url, "delay", err)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", r.fail(ctx, url, "read dom", err)
	}

	r.logger.Debug("page rendered",
		zap.String("url", url),
		zap.Bool("price_element", found),
		zap.Int("bytes", len(html)),
		zap.Duration("duration", time.Since(start)))
	return html, nil
}

// waitIdle returns on the first networkIdle event or when IdleWait elapses.
func (r *Renderer) waitIdle(ctx context.Context, idle <-chan struct{}) {
	if r.opts.IdleWait <= 0 {
		return
	}
	timer := time.NewTimer(r.opts.IdleWait)
	defer timer.Stop()
	select {
	case <-idle:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// waitPrice polls for any known price element until SelectorWait elapses.
func (r *Renderer) waitPrice(ctx context.Context) bool {
	if r.opts.SelectorWait <= 0 {
		return false
	}
	deadline := time.Now().Add(r.opts.SelectorWait)
	probe := selectorProbe(priceSelectors)
	for {
		var found bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(probe, &found)); err == nil && found {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if sleepContext(ctx, 250*time.Millisecond) != nil {
			return false
		}
	}
}

func (r *Renderer) delay() time.Duration {
	lo, hi := r.opts.DelayMin, r.opts.DelayMax
	if hi <= lo {
		return max(lo, 0)
	}
	return lo + rand.N(hi-lo)
}

func (r *Renderer) fail(ctx context.Context, url, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	r.logger.Warn("render failed", zap.String("url", url), zap.String("step", step), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", repository.ErrRenderFailed, step, err)
}

// Close shuts the browser down. Later renders fail.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.release()
}

// selectorProbe builds a JS expression that is true when any selector matches.
func selectorProbe(selectors []string) string {
	quoted := make([]string, len(selectors))
	for i, s := range selectors {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("[%s].some(s => document.querySelector(s) !== null)", strings.Join(quoted, ","))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
