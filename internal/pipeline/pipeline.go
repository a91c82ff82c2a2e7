// Package pipeline wires one digest run: fetch all sources, keep the
// reference day's articles, classify them, select the digest.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minhngoc/bantin/internal/classify"
	"github.com/minhngoc/bantin/internal/collect"
	"github.com/minhngoc/bantin/internal/config"
	"github.com/minhngoc/bantin/internal/daily"
	"github.com/minhngoc/bantin/internal/digest"
	"github.com/minhngoc/bantin/internal/fetch"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
}

// Result holds everything one run produced. Only the fetch stage
// touches the network; every later stage is a pure transformation of
// its input, so a Result is fully determined by what the sources
// returned.
type Result struct {
	Date       time.Time
	Fetch      *fetch.Result
	Dated      *daily.Result
	Classified *classify.Result
	Digest     *digest.Digest
	Steps      []StepResult
}

// Pipeline runs the digest stages over the configured sources.
type Pipeline struct {
	cfg      *config.Config
	adapters []collect.Adapter
}

// New creates a pipeline with adapters built from the config.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{cfg: cfg, adapters: collect.Build(cfg)}
}

// Run executes one digest run for the given reference time. Partial
// source failure is normal; nothing here is fatal.
func (p *Pipeline) Run(ctx context.Context, ref time.Time) *Result {
	loc := p.cfg.Location()
	ref = ref.In(loc)
	r := &Result{Date: ref}

	log.Printf("Step 1/4: Fetching %d sources...", len(p.adapters))
	r.Fetch = fetch.New(p.adapters, p.cfg.Fetch).FetchAll(ctx)
	r.Steps = append(r.Steps, StepResult{
		Name: "Fetch",
		Summary: fmt.Sprintf("%d articles from %d/%d sources",
			len(r.Fetch.Articles), r.Fetch.Succeeded(), len(r.Fetch.Outcomes)),
	})

	log.Printf("Step 2/4: Keeping articles from %s...", ref.Format("02/01/2006"))
	r.Dated = daily.Filter(r.Fetch.Articles, ref, loc, p.cfg.Digest.SummaryLength)
	r.Steps = append(r.Steps, StepResult{
		Name: "Date filter",
		Summary: fmt.Sprintf("kept %d of %d (%d undated, %d other days)",
			len(r.Dated.Articles), len(r.Fetch.Articles), r.Dated.DroppedDate, r.Dated.DroppedDay),
	})

	log.Println("Step 3/4: Classifying articles...")
	engine := classify.New(p.cfg.Rules)
	r.Classified = engine.Run(r.Dated.Articles)
	r.Steps = append(r.Steps, StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("%d matched, %d excluded, %d unmatched, %d duplicates",
			r.Classified.Matched, r.Classified.Excluded, r.Classified.Unmatched, r.Classified.Duplicates),
	})

	log.Println("Step 4/4: Selecting the digest...")
	r.Digest = digest.Select(r.Classified.ByCategory, engine.Categories(), p.cfg.Digest.Size, ref)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Select",
		Summary: fmt.Sprintf("%d articles selected", len(r.Digest.Articles)),
	})

	if r.Digest.Empty() {
		log.Println("Run complete: no matching news for the digest")
	} else {
		log.Printf("Run complete: %d articles for %s", len(r.Digest.Articles), ref.Format("02/01/2006"))
	}
	return r
}
