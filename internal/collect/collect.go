// Package collect turns remote news sources into raw articles. Two
// adapter variants exist: feed sources (RSS/Atom) and scrape sources
// (HTML listing pages with CSS selectors).
package collect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minhngoc/bantin/internal/config"
)

const userAgent = "bantin/1.0 (news digest bot)"

// RawArticle is one entry as a source presented it, before date
// normalization and filtering. Published is zero when the source gave
// no machine-parsed timestamp; PublishedRaw carries the original date
// text when only text was available.
type RawArticle struct {
	Source       string
	Title        string
	Link         string
	Summary      string
	Published    time.Time
	PublishedRaw string
}

// Adapter fetches the current entries of one configured source.
// Implementations preserve the source's document order and cap the
// number of returned entries.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]RawArticle, error)
}

// FetchError reports the failure of a whole source fetch: transport
// error, HTTP error status, or an unparseable payload.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Build assembles adapters for every configured source, sharing one
// HTTP client.
func Build(cfg *config.Config) []Adapter {
	client := NewHTTPClient()

	var adapters []Adapter
	for _, f := range cfg.Sources.Feeds {
		adapters = append(adapters, NewFeedAdapter(f, client, cfg.Fetch.MaxPerSource))
	}
	for _, s := range cfg.Sources.Scrape {
		adapters = append(adapters, NewScrapeAdapter(s, client, cfg.Fetch.MaxPerSource))
	}
	return adapters
}

// NewHTTPClient returns the client adapters share. Deadlines come from
// the per-attempt context, not from the client.
func NewHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// get issues a GET with the shared User-Agent. A status >= 400 is an
// error; the caller owns the body otherwise.
func get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}
