package digest

import (
	"testing"
	"time"

	"github.com/minhngoc/bantin/internal/classify"
	"github.com/minhngoc/bantin/internal/daily"
)

func entry(category, title string) classify.Article {
	return classify.Article{
		Article: daily.Article{
			Title: title,
			Link:  "https://example.vn/" + title,
		},
		Category: category,
	}
}

func titles(d *Digest) []string {
	out := make([]string, len(d.Articles))
	for i, a := range d.Articles {
		out[i] = a.Title
	}
	return out
}

func assertOrder(t *testing.T, d *Digest, want []string) {
	t.Helper()
	got := titles(d)
	if len(got) != len(want) {
		t.Fatalf("expected %d selected, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRoundRobinAcrossCategories(t *testing.T) {
	byCategory := map[string][]classify.Article{
		"A": {entry("A", "a1"), entry("A", "a2"), entry("A", "a3")},
		"B": {entry("B", "b1")},
	}

	d := Select(byCategory, []string{"A", "B", "C"}, 5, time.Time{})

	// Round 1 takes a1, b1 (C has nothing); later rounds drain A
	assertOrder(t, d, []string{"a1", "b1", "a2", "a3"})
}

func TestSelectStopsAtLimit(t *testing.T) {
	byCategory := map[string][]classify.Article{
		"A": {entry("A", "a1"), entry("A", "a2"), entry("A", "a3")},
		"B": {entry("B", "b1"), entry("B", "b2"), entry("B", "b3")},
	}

	d := Select(byCategory, []string{"A", "B"}, 5, time.Time{})

	assertOrder(t, d, []string{"a1", "b1", "a2", "b2", "a3"})
}

func TestSelectPriorityOrderWithinRound(t *testing.T) {
	byCategory := map[string][]classify.Article{
		"B": {entry("B", "b1")},
		"A": {entry("A", "a1")},
		"C": {entry("C", "c1")},
	}

	d := Select(byCategory, []string{"A", "B", "C"}, 2, time.Time{})

	assertOrder(t, d, []string{"a1", "b1"})
}

func TestSelectEmptyInput(t *testing.T) {
	date := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	d := Select(map[string][]classify.Article{}, []string{"A", "B"}, 5, date)

	if !d.Empty() {
		t.Errorf("expected an empty digest, got %v", titles(d))
	}
	if !d.Date.Equal(date) {
		t.Errorf("expected the reference date kept, got %v", d.Date)
	}
}

func TestSelectFewerThanLimit(t *testing.T) {
	byCategory := map[string][]classify.Article{
		"A": {entry("A", "a1")},
	}

	d := Select(byCategory, []string{"A"}, 5, time.Time{})

	assertOrder(t, d, []string{"a1"})
	if d.Empty() {
		t.Error("digest with one article is not empty")
	}
}

func TestSelectZeroLimit(t *testing.T) {
	byCategory := map[string][]classify.Article{
		"A": {entry("A", "a1")},
	}

	d := Select(byCategory, []string{"A"}, 0, time.Time{})
	if !d.Empty() {
		t.Errorf("expected nothing selected at limit 0, got %v", titles(d))
	}
}
