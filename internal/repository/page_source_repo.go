package repository

import "context"

// StaticPageFetcher retrieves raw HTML over plain HTTP.
type StaticPageFetcher interface {
	// FetchStatic returns the response body of a successful GET.
	FetchStatic(ctx context.Context, url string) (string, error)
}

// PageRenderer executes page JavaScript in a headless browser.
type PageRenderer interface {
	// RenderDynamic returns the serialized DOM once the page has settled.
	RenderDynamic(ctx context.Context, url string) (string, error)
}
