package usecase

import (
	"context"
	"sync"

	"github.com/user/pricewatch-service/internal/entity"
)

type mockStaticFetcher struct {
	fetchFn func(ctx context.Context, url string) (string, error)
	calls   int
}

func (m *mockStaticFetcher) FetchStatic(ctx context.Context, url string) (string, error) {
	m.calls++
	return m.fetchFn(ctx, url)
}

type mockRenderer struct {
	renderFn func(ctx context.Context, url string) (string, error)
	calls    int
}

func (m *mockRenderer) RenderDynamic(ctx context.Context, url string) (string, error) {
	m.calls++
	return m.renderFn(ctx, url)
}

type mockNotifier struct {
	mu      sync.Mutex
	sendFn  func(ctx context.Context, notice entity.PriceDropNotice) (string, error)
	notices []entity.PriceDropNotice
}

func (m *mockNotifier) Send(ctx context.Context, notice entity.PriceDropNotice) (string, error) {
	m.mu.Lock()
	m.notices = append(m.notices, notice)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, notice)
	}
	return "ref-1", nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, url string) entity.ExtractedProduct
}

func (m *mockExtractor) Extract(ctx context.Context, url string) entity.ExtractedProduct {
	return m.extractFn(ctx, url)
}

type mockThrottle struct {
	mu    sync.Mutex
	hosts []string
}

func (m *mockThrottle) Wait(_ context.Context, rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts = append(m.hosts, rawURL)
	return nil
}

type mockFailureCounter struct {
	counts map[string]int64
	resets int
}

func (m *mockFailureCounter) Increment(_ context.Context, url string) (int64, error) {
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[url]++
	return m.counts[url], nil
}

func (m *mockFailureCounter) Reset(_ context.Context, url string) error {
	m.resets++
	delete(m.counts, url)
	return nil
}

type mockRunStatus struct {
	last *entity.RunReport
}

func (m *mockRunStatus) SaveLastRun(_ context.Context, report *entity.RunReport) error {
	r := *report
	m.last = &r
	return nil
}

func (m *mockRunStatus) LastRun(context.Context) (*entity.RunReport, error) {
	return m.last, nil
}

func floatPtr(v float64) *float64 { return &v }
