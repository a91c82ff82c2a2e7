// Package schedule triggers the daily digest job on a cron expression
// evaluated in the configured timezone.
package schedule

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled digest run, handed the trigger time.
type Job func(now time.Time)

// Scheduler fires the digest job on a cron schedule. If a run is still
// going when the next trigger arrives, the trigger is skipped.
type Scheduler struct {
	cron *cron.Cron
}

// New builds a scheduler that fires job according to spec in loc.
func New(spec string, loc *time.Location, job Job) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))),
	)
	_, err := c.AddFunc(spec, func() {
		job(time.Now().In(loc))
	})
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start begins triggering and returns immediately.
func (s *Scheduler) Start() {
	s.cron.Start()
	entries := s.cron.Entries()
	if len(entries) > 0 {
		log.Printf("Scheduler started, next run at %s", entries[0].Next.Format("15:04 02/01/2006 MST"))
	}
}

// Stop ends triggering and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// NextAfter reports the first trigger of spec in loc after t.
func NextAfter(spec string, loc *time.Location, t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return sched.Next(t.In(loc)), nil
}
