package collect

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/minhngoc/bantin/internal/config"
)

// ScrapeAdapter fetches articles from an HTML listing page using the
// source's CSS selectors. Each node matched by the title selector is
// one candidate entry; summary and date are looked up relative to the
// entry's container.
type ScrapeAdapter struct {
	name      string
	url       string
	selectors config.Selectors
	client    *http.Client
	maxItems  int
}

// NewScrapeAdapter creates an adapter for a scrape source.
func NewScrapeAdapter(cfg config.Scrape, client *http.Client, maxItems int) *ScrapeAdapter {
	name := cfg.Name
	if name == "" {
		name = extractSourceName(cfg.URL)
	}
	return &ScrapeAdapter{
		name:      name,
		url:       cfg.URL,
		selectors: cfg.Selectors,
		client:    client,
		maxItems:  maxItems,
	}
}

// Name returns the source name used in reports and rendered output.
func (a *ScrapeAdapter) Name() string {
	return a.name
}

// Fetch downloads the listing page and extracts entries in document
// order up to the per-source cap. Entries without a usable title or
// link are skipped.
func (a *ScrapeAdapter) Fetch(ctx context.Context) ([]RawArticle, error) {
	resp, err := get(ctx, a.client, a.url)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}

	base, err := url.Parse(a.url)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}

	var articles []RawArticle
	skipped := 0
	doc.Find(a.selectors.Title).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(articles) >= a.maxItems {
			return false
		}

		title := collapseText(sel)
		link := entryLink(sel, base)
		if title == "" || link == "" {
			skipped++
			return true
		}

		ra := RawArticle{
			Source: a.name,
			Title:  title,
			Link:   link,
		}

		container := entryContainer(sel)
		if a.selectors.Summary != "" {
			ra.Summary = collapseText(container.Find(a.selectors.Summary).First())
		}
		if a.selectors.Date != "" {
			ra.PublishedRaw = collapseText(container.Find(a.selectors.Date).First())
		}

		articles = append(articles, ra)
		return true
	})

	if skipped > 0 {
		log.Printf("Skipped %d malformed entries from %s", skipped, a.name)
	}
	return articles, nil
}

// entryLink finds the entry's URL: the title node itself when it is an
// anchor, else the first anchor inside it, else the nearest ancestor
// anchor. Relative links resolve against the page URL.
func entryLink(sel *goquery.Selection, base *url.URL) string {
	href, ok := sel.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		if inner := sel.Find("a[href]").First(); inner.Length() > 0 {
			href, _ = inner.Attr("href")
		}
	}
	if strings.TrimSpace(href) == "" {
		if outer := sel.Closest("a[href]"); outer.Length() > 0 {
			href, _ = outer.Attr("href")
		}
	}

	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// entryContainer is the element the summary and date selectors are
// scoped to: the nearest article/li/div ancestor of the title node, or
// its direct parent.
func entryContainer(sel *goquery.Selection) *goquery.Selection {
	if c := sel.Parent().Closest("article, li, div"); c.Length() > 0 {
		return c
	}
	return sel.Parent()
}

func collapseText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
