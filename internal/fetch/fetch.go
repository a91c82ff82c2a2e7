// Package fetch runs all source adapters concurrently and aggregates
// their results. Sources are isolated: a slow or failing source times
// out, gets retried, and is reported, but never takes the run down.
package fetch

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minhngoc/bantin/internal/collect"
	"github.com/minhngoc/bantin/internal/config"
)

// Status classifies how a source fetch concluded.
type Status string

const (
	StatusOK            Status = "ok"
	StatusFailed        Status = "failed"
	StatusRetriedOK     Status = "retried-ok"
	StatusRetriedFailed Status = "retried-failed"
)

// Outcome is one source's entry in the fetch report.
type Outcome struct {
	Source   string
	Status   Status
	Articles int
	Attempts int
	Reason   string // failure cause, empty on success
	Elapsed  time.Duration
}

// Result holds the merged articles and per-source outcomes of one run.
// Article order across sources is not meaningful; downstream stages
// re-sort what they need.
type Result struct {
	Articles []collect.RawArticle
	Outcomes []Outcome // sorted by source name
}

// Succeeded counts sources that delivered, with or without a retry.
func (r *Result) Succeeded() int {
	n := 0
	for _, oc := range r.Outcomes {
		if oc.Status == StatusOK || oc.Status == StatusRetriedOK {
			n++
		}
	}
	return n
}

// Failed counts sources that delivered nothing.
func (r *Result) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Orchestrator fetches all sources under a bounded worker pool with a
// per-attempt timeout and a fixed backoff between attempts.
type Orchestrator struct {
	adapters    []collect.Adapter
	concurrency int
	timeout     time.Duration
	retries     int
	backoff     time.Duration
}

// New creates an orchestrator for the given adapters.
func New(adapters []collect.Adapter, cfg config.Fetch) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		adapters:    adapters,
		concurrency: concurrency,
		timeout:     cfg.Timeout(),
		retries:     cfg.Retries,
		backoff:     cfg.Backoff(),
	}
}

type sourceResult struct {
	articles []collect.RawArticle
	outcome  Outcome
}

// FetchAll runs every adapter and merges the results. Workers hand
// their results over a channel; only the coordinating loop below
// writes to the merged Result.
func (o *Orchestrator) FetchAll(ctx context.Context) *Result {
	if len(o.adapters) == 0 {
		log.Println("No sources configured")
		return &Result{}
	}

	results := make(chan sourceResult, len(o.adapters))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for _, adapter := range o.adapters {
		adapter := adapter
		g.Go(func() error {
			results <- o.fetchOne(ctx, adapter)
			return nil
		})
	}
	g.Wait()
	close(results)

	merged := &Result{}
	for sr := range results {
		merged.Articles = append(merged.Articles, sr.articles...)
		merged.Outcomes = append(merged.Outcomes, sr.outcome)
	}
	sort.Slice(merged.Outcomes, func(i, j int) bool {
		return merged.Outcomes[i].Source < merged.Outcomes[j].Source
	})

	for _, oc := range merged.Outcomes {
		switch {
		case oc.Reason != "":
			log.Printf("Source %s: %s after %d attempt(s): %s", oc.Source, oc.Status, oc.Attempts, oc.Reason)
		case oc.Articles == 0:
			log.Printf("Source %s: %s, no articles", oc.Source, oc.Status)
		}
	}
	log.Printf("Fetch complete: %d articles from %d/%d sources", len(merged.Articles), merged.Succeeded(), len(o.adapters))

	return merged
}

func (o *Orchestrator) fetchOne(ctx context.Context, adapter collect.Adapter) sourceResult {
	name := adapter.Name()
	start := time.Now()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= o.retries; attempt++ {
		if attempt > 0 {
			if !sleep(ctx, o.backoff) {
				break
			}
		}
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		articles, err := adapter.Fetch(attemptCtx)
		cancel()

		if err == nil {
			status := StatusOK
			if attempts > 1 {
				status = StatusRetriedOK
			}
			return sourceResult{
				articles: articles,
				outcome: Outcome{
					Source:   name,
					Status:   status,
					Articles: len(articles),
					Attempts: attempts,
					Elapsed:  time.Since(start),
				},
			}
		}

		lastErr = err
		log.Printf("Fetch attempt %d/%d failed for %s: %v", attempts, o.retries+1, name, err)
	}

	status := StatusFailed
	if attempts > 1 {
		status = StatusRetriedFailed
	}
	return sourceResult{
		outcome: Outcome{
			Source:   name,
			Status:   status,
			Attempts: attempts,
			Reason:   reasonOf(lastErr),
			Elapsed:  time.Since(start),
		},
	}
}

// reasonOf strips the source prefix from a FetchError so report lines
// don't repeat the name.
func reasonOf(err error) string {
	if err == nil {
		return "canceled before first attempt"
	}
	var fe *collect.FetchError
	if errors.As(err, &fe) {
		return fe.Err.Error()
	}
	return err.Error()
}

// sleep waits out the backoff, returning false when the context ends
// first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
