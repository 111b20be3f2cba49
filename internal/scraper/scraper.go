package scraper

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNoSearchBox   = errors.New("search box not found")
	ErrNoSuggestions = errors.New("no search suggestions appeared")
	ErrPageNotLoaded = errors.New("page did not load")
	ErrVendorTimeout = errors.New("vendor navigation timed out")
)

// Browser creates navigation contexts. One Page is one in-flight task at a
// time; concurrent vendor tasks each get their own Page.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is a single browser navigation context. Implementations carry an
// implicit page-load timeout; DOM extraction happens on captured HTML, not
// through the page.
type Page interface {
	// Navigate loads a URL and follows redirects to the final destination.
	Navigate(ctx context.Context, url string) error
	// Fill types text into the element matching the selector.
	Fill(ctx context.Context, selector, text string) error
	// WaitForSelector blocks until the selector matches or the timeout
	// elapses.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	// Content returns the current page HTML.
	Content() (string, error)
	// URL returns the current (post-redirect) page URL.
	URL() string
	Close() error
}

// absoluteURL resolves site-relative hrefs against the base URL.
func absoluteURL(baseURL, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimSuffix(baseURL, "/") + href
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + href
}
