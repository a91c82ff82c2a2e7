package collect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minhngoc/bantin/internal/config"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Tin Mới</title>
<link>https://example.vn</link>
<item>
  <title>Quốc hội thông qua luật đất đai sửa đổi</title>
  <link>https://example.vn/luat-dat-dai</link>
  <description><![CDATA[<p>Luật có hiệu lực từ <b>tháng sau</b>.</p>]]></description>
  <pubDate>Mon, 02 Jun 2025 08:30:00 +0700</pubDate>
</item>
<item>
  <title>Giá vàng SJC lập đỉnh mới</title>
  <guid>https://example.vn/gia-vang-dinh-moi</guid>
  <description>Vàng miếng tăng mạnh trong phiên sáng.</description>
  <pubDate>chiều 2/6/2025</pubDate>
</item>
<item>
  <title></title>
  <link>https://example.vn/khong-tieu-de</link>
</item>
<item>
  <title>VN-Index vượt mốc 1300 điểm</title>
  <link>https://example.vn/vn-index-1300</link>
</item>
</channel>
</rss>`

func serveFixture(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedAdapterFetch(t *testing.T) {
	srv := serveFixture(t, "application/rss+xml", rssFixture)

	adapter := NewFeedAdapter(config.Feed{Name: "Tin Mới", URL: srv.URL}, NewHTTPClient(), 200)
	articles, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	// The item without a title is skipped
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.Title != "Quốc hội thông qua luật đất đai sửa đổi" {
		t.Errorf("unexpected first title: %q", first.Title)
	}
	if first.Link != "https://example.vn/luat-dat-dai" {
		t.Errorf("unexpected first link: %q", first.Link)
	}
	if first.Summary != "Luật có hiệu lực từ tháng sau ." {
		t.Errorf("expected stripped summary, got %q", first.Summary)
	}
	if first.Source != "Tin Mới" {
		t.Errorf("expected source name carried through, got %q", first.Source)
	}
	if first.Published.IsZero() {
		t.Fatal("expected parsed publish time on first item")
	}
	if got := first.Published.UTC().Format("2006-01-02 15:04"); got != "2025-06-02 01:30" {
		t.Errorf("expected publish time 2025-06-02 01:30 UTC, got %s", got)
	}

	// Second item: GUID link fallback and unparsable pubDate carried raw
	second := articles[1]
	if second.Link != "https://example.vn/gia-vang-dinh-moi" {
		t.Errorf("expected GUID fallback link, got %q", second.Link)
	}
	if !second.Published.IsZero() {
		t.Errorf("expected zero publish time for unparsable date, got %v", second.Published)
	}
	if second.PublishedRaw != "chiều 2/6/2025" {
		t.Errorf("expected raw date carried, got %q", second.PublishedRaw)
	}

	// Third item: no date at all
	third := articles[2]
	if !third.Published.IsZero() || third.PublishedRaw != "" {
		t.Errorf("expected dateless item, got %v / %q", third.Published, third.PublishedRaw)
	}
}

func TestFeedAdapterCap(t *testing.T) {
	srv := serveFixture(t, "application/rss+xml", rssFixture)

	adapter := NewFeedAdapter(config.Feed{Name: "Tin Mới", URL: srv.URL}, NewHTTPClient(), 2)
	articles, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected cap of 2 articles, got %d", len(articles))
	}
	// Document order preserved under the cap
	if articles[0].Title != "Quốc hội thông qua luật đất đai sửa đổi" {
		t.Errorf("unexpected first title under cap: %q", articles[0].Title)
	}
}

func TestFeedAdapterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewFeedAdapter(config.Feed{Name: "Hỏng", URL: srv.URL}, NewHTTPClient(), 200)
	_, err := adapter.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.Source != "Hỏng" {
		t.Errorf("expected source name in error, got %q", fe.Source)
	}
}

func TestFeedAdapterBadPayload(t *testing.T) {
	srv := serveFixture(t, "text/plain", "this is not a feed")

	adapter := NewFeedAdapter(config.Feed{Name: "Rác", URL: srv.URL}, NewHTTPClient(), 200)
	_, err := adapter.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for unparseable payload")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
}

func TestFeedAdapterContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	adapter := NewFeedAdapter(config.Feed{Name: "Chậm", URL: srv.URL}, NewHTTPClient(), 200)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.Fetch(ctx)
	if err == nil {
		t.Fatal("expected error when the context deadline passes")
	}
}

func TestFeedAdapterNameFromURL(t *testing.T) {
	adapter := NewFeedAdapter(config.Feed{URL: "https://rss.vnexpress.net/tin-moi-nhat.rss"}, NewHTTPClient(), 200)
	if adapter.Name() != "Vnexpress" {
		t.Errorf("expected name derived from host, got %q", adapter.Name())
	}
}

func TestStripHTML(t *testing.T) {
	in := `<p>Giá vàng &amp; tỷ giá <b>hôm nay</b>:&nbsp;tăng</p>`
	got := stripHTML(in)
	want := "Giá vàng & tỷ giá hôm nay : tăng"
	if got != want {
		t.Errorf("stripHTML = %q, expected %q", got, want)
	}
}

func TestExtractSourceName(t *testing.T) {
	cases := map[string]string{
		"https://vnexpress.net/rss/tin-moi-nhat.rss": "Vnexpress",
		"https://www.thanhnien.vn/rss/home.rss":      "Thanhnien",
		"https://feeds.tuoitre.vn/rss":               "Tuoitre",
	}
	for in, want := range cases {
		if got := extractSourceName(in); got != want {
			t.Errorf("extractSourceName(%q) = %q, expected %q", in, got, want)
		}
	}
}
