package collect

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/minhngoc/bantin/internal/config"
)

// FeedAdapter fetches articles from one RSS/Atom feed.
type FeedAdapter struct {
	name     string
	url      string
	client   *http.Client
	maxItems int
}

// NewFeedAdapter creates an adapter for a feed source. A missing name
// is derived from the feed URL's host.
func NewFeedAdapter(cfg config.Feed, client *http.Client, maxItems int) *FeedAdapter {
	name := cfg.Name
	if name == "" {
		name = extractSourceName(cfg.URL)
	}
	return &FeedAdapter{
		name:     name,
		url:      cfg.URL,
		client:   client,
		maxItems: maxItems,
	}
}

// Name returns the source name used in reports and rendered output.
func (a *FeedAdapter) Name() string {
	return a.name
}

// Fetch downloads and parses the feed, mapping items to raw articles
// in document order up to the per-source cap.
func (a *FeedAdapter) Fetch(ctx context.Context) ([]RawArticle, error) {
	resp, err := get(ctx, a.client, a.url)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}

	var articles []RawArticle
	skipped := 0
	for _, item := range feed.Items {
		if len(articles) >= a.maxItems {
			break
		}
		ra, ok := parseItem(item, a.name)
		if !ok {
			skipped++
			continue
		}
		articles = append(articles, ra)
	}

	if skipped > 0 {
		log.Printf("Skipped %d malformed entries from %s", skipped, a.name)
	}
	return articles, nil
}

func parseItem(item *gofeed.Item, source string) (RawArticle, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = strings.TrimSpace(item.GUID)
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return RawArticle{}, false
	}

	ra := RawArticle{
		Source: source,
		Title:  title,
		Link:   link,
	}

	if item.Description != "" {
		ra.Summary = stripHTML(item.Description)
	} else if item.Content != "" {
		ra.Summary = stripHTML(item.Content)
	}

	switch {
	case item.PublishedParsed != nil:
		ra.Published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		ra.Published = *item.UpdatedParsed
	case item.Published != "":
		ra.PublishedRaw = item.Published
	case item.Updated != "":
		ra.PublishedRaw = item.Updated
	}

	return ra, true
}

func stripHTML(text string) string {
	// Simple HTML tag removal
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	// Decode common entities
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	// Normalize whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
