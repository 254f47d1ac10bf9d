package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/pricewatch-service/internal/entity"
	"github.com/user/pricewatch-service/internal/repository"
	"github.com/user/pricewatch-service/pkg/metrics"
	"github.com/user/pricewatch-service/pkg/price"
	"github.com/user/pricewatch-service/pkg/utils"
	"go.uber.org/zap"
)

const minProductNameRunes = 10

// Names that identify a site or an interstitial page rather than a product.
var placeholderNames = map[string]struct{}{
	"amazon":              {},
	"amazon.com":          {},
	"amazon.eg":           {},
	"noon":                {},
	"jumia":               {},
	"ebay":                {},
	"aliexpress":          {},
	"walmart":             {},
	"walmart.com":         {},
	"temu":                {},
	"shop":                {},
	"store":               {},
	"home":                {},
	"product":             {},
	"products":            {},
	"online shopping":     {},
	"page not found":      {},
	"404 not found":       {},
	"access denied":       {},
	"robot check":         {},
	"just a moment...":    {},
	"attention required!": {},
	"sign in":             {},
}

// PriceExtractor derives a product name and price text from a product page,
// trying the static page first and escalating to a rendered one when the
// static result is too weak to trust.
type PriceExtractor struct {
	static     repository.StaticPageFetcher
	renderer   repository.PageRenderer
	renderOnly []string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewPriceExtractor creates the extractor. renderer may be nil, in which case
// rendering is never attempted. renderOnlyDomains are host fragments that skip
// the static fetch.
func NewPriceExtractor(
	static repository.StaticPageFetcher,
	renderer repository.PageRenderer,
	renderOnlyDomains []string,
	logger *zap.Logger,
	m *metrics.Metrics,
) *PriceExtractor {
	return &PriceExtractor{
		static:     static,
		renderer:   renderer,
		renderOnly: renderOnlyDomains,
		logger:     logger,
		metrics:    m,
	}
}

// Extract never fails. Callers treat PriceText == "unknown" as not comparable.
func (e *PriceExtractor) Extract(ctx context.Context, productURL string) entity.ExtractedProduct {
	if e.RequiresRendering(productURL) {
		return e.attempt(ctx, productURL, entity.SourceRendered)
	}

	static := e.attempt(ctx, productURL, entity.SourceStatic)
	if !IsWeakExtraction(static) || e.renderer == nil {
		return static
	}

	e.logger.Debug("static extraction too weak, rendering",
		zap.String("url", productURL),
		zap.String("name", static.Name),
		zap.String("price_text", static.PriceText))

	// Both weak: the rendered result is still the better guess.
	return e.attempt(ctx, productURL, entity.SourceRendered)
}

// RequiresRendering reports whether productURL belongs to a host configured
// to skip the static fetch.
func (e *PriceExtractor) RequiresRendering(productURL string) bool {
	return e.renderer != nil && utils.HostContainsAny(utils.Hostname(productURL), e.renderOnly)
}

func (e *PriceExtractor) attempt(ctx context.Context, productURL string, source entity.ExtractionSource) entity.ExtractedProduct {
	start := time.Now()
	html, err := e.fetch(ctx, productURL, source)

	product := ParseProduct(productURL, html)
	product.Source = source
	product.FetchErr = err

	product.Outcome = entity.OutcomeValid
	switch {
	case err != nil:
		product.Outcome = entity.OutcomeFailed
		e.logger.Warn("page fetch failed",
			zap.String("url", productURL),
			zap.String("source", string(source)),
			zap.Error(err))
	case IsWeakExtraction(product):
		product.Outcome = entity.OutcomeWeak
	}
	e.metrics.ObserveExtraction(string(source), string(product.Outcome), time.Since(start))
	return product
}

func (e *PriceExtractor) fetch(ctx context.Context, productURL string, source entity.ExtractionSource) (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			html, err = "", fmt.Errorf("%s page source panicked: %v", source, r)
		}
	}()

	if source == entity.SourceRendered {
		if e.renderer == nil {
			return "", repository.ErrRendererDisabled
		}
		return e.renderer.RenderDynamic(ctx, productURL)
	}
	if e.static == nil {
		return "", errors.New("no static fetcher configured")
	}
	return e.static.FetchStatic(ctx, productURL)
}

// ParseProduct runs the name and price strategy lists over html. It accepts
// any input, including empty or malformed markup.
func ParseProduct(productURL, html string) (product entity.ExtractedProduct) {
	product = entity.ExtractedProduct{URL: productURL, Name: productURL, PriceText: price.Unknown}
	defer func() {
		if r := recover(); r != nil {
			product = entity.ExtractedProduct{URL: productURL, Name: productURL, PriceText: price.Unknown}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return product
	}
	if name, _ := runStrategies(doc, nameStrategies); name != "" {
		product.Name = name
	}
	if priceText, _ := runStrategies(doc, priceStrategies); priceText != "" {
		product.PriceText = priceText
	}
	return product
}

// IsWeakExtraction reports whether a result is too weak to trust.
func IsWeakExtraction(p entity.ExtractedProduct) bool {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "" || name == p.URL:
		return true
	case utf8.RuneCountInString(name) < minProductNameRunes:
		return true
	case isPlaceholderName(name):
		return true
	case p.PriceText == price.Unknown:
		return true
	case price.IsZeroOrEmpty(p.PriceText):
		return true
	}
	return false
}

func isPlaceholderName(name string) bool {
	_, ok := placeholderNames[strings.ToLower(name)]
	return ok
}
