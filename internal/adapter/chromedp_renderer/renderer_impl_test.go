package chromedp_renderer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/user/pricewatch-service/internal/repository"
	"go.uber.org/zap/zaptest"
)

var _ repository.PageRenderer = (*Renderer)(nil)

func TestSelectorProbe(t *testing.T) {
	got := selectorProbe([]string{".price", "[itemprop='price']"})
	want := `[".price","[itemprop='price']"].some(s => document.querySelector(s) !== null)`
	if got != want {
		t.Errorf("selectorProbe() = %s, want %s", got, want)
	}
}

func TestDelayWithinBounds(t *testing.T) {
	r := &Renderer{opts: Options{DelayMin: time.Second, DelayMax: 3 * time.Second}}
	for range 100 {
		if d := r.delay(); d < time.Second || d >= 3*time.Second {
			t.Fatalf("delay() = %v, want [1s, 3s)", d)
		}
	}
	r.opts = Options{DelayMin: 2 * time.Second}
	if d := r.delay(); d != 2*time.Second {
		t.Errorf("delay() with max <= min = %v, want 2s", d)
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() = %v, want context.Canceled", err)
	}
}

func TestBrowserLaunchFailureIsRetried(t *testing.T) {
	r := NewRenderer(Options{Timeout: time.Second}, zaptest.NewLogger(t))
	defer r.Close()

	launches := 0
	r.launch = func(context.Context) error {
		launches++
		if launches == 1 {
			return errors.New("chrome not found")
		}
		return nil
	}

	if _, err := r.RenderDynamic(context.Background(), "https://shop.example.com/p/1"); !errors.Is(err, repository.ErrRenderFailed) {
		t.Fatalf("RenderDynamic() error = %v, want ErrRenderFailed", err)
	}
	if _, err := r.browser(); err != nil {
		t.Fatalf("browser() after a failed launch error = %v, want a fresh launch", err)
	}
	if launches != 2 {
		t.Errorf("launches = %d, want 2", launches)
	}
}

func TestBrowserRelaunchedAfterExit(t *testing.T) {
	r := NewRenderer(Options{}, zaptest.NewLogger(t))
	defer r.Close()

	launches := 0
	r.launch = func(context.Context) error {
		launches++
		return nil
	}

	first, err := r.browser()
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := r.browser(); again != first {
		t.Error("live browser was not reused")
	}

	// Simulate the browser going away.
	r.mu.Lock()
	r.cancelBrowser()
	r.mu.Unlock()

	second, err := r.browser()
	if err != nil {
		t.Fatal(err)
	}
	if second == first || second.Err() != nil {
		t.Error("browser() returned the dead context")
	}
	if launches != 2 {
		t.Errorf("launches = %d, want 2", launches)
	}
}

func TestClosedRendererRefusesWork(t *testing.T) {
	r := NewRenderer(Options{}, zaptest.NewLogger(t))
	r.launch = func(context.Context) error { return nil }
	r.Close()

	if _, err := r.browser(); !errors.Is(err, errRendererClosed) {
		t.Errorf("browser() after Close() error = %v, want errRendererClosed", err)
	}
}

// TestRenderDynamic needs a local Chrome; set PRICEWATCH_TEST_CHROME=1 to run it.
func TestRenderDynamic(t *testing.T) {
	if os.Getenv("PRICEWATCH_TEST_CHROME") == "" {
		t.Skip("PRICEWATCH_TEST_CHROME not set")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Acme Espresso Machine</h1><div id="p"></div>
<script>setTimeout(function(){document.getElementById('p').innerHTML='<span itemprop="price">$149.00</span>'}, 200)</script>
</body></html>`))
	}))
	defer srv.Close()

	r := NewRenderer(Options{
		Timeout:      20 * time.Second,
		IdleWait:     2 * time.Second,
		SelectorWait: 2 * time.Second,
	}, zaptest.NewLogger(t))
	defer r.Close()

	html, err := r.RenderDynamic(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("RenderDynamic() error = %v", err)
	}
	if !strings.Contains(html, "$149.00") {
		t.Errorf("rendered DOM missing script output: %s", html)
	}
}
