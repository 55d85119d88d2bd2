package worker

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic jobs through a Runner. A job that is still running
// when its next tick arrives skips that tick.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	names  map[cron.EntryID]string
}

func NewScheduler(runner *Runner) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(logger))),
		runner: runner,
		names:  map[cron.EntryID]string{},
	}
}

// AddJob registers fn under a standard cron spec or a descriptor such as
// "@every 1h".
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() {
		log.Printf("🔄 [Scheduler] Starting %s", name)
		s.runner.Run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.names[id] = name
	return nil
}

// Jobs lists registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	var out []string
	for _, e := range s.cron.Entries() {
		out = append(out, s.names[e.ID])
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("⏰ [Scheduler] Started with %d jobs", len(s.names))
}

// Stop prevents new runs. Jobs already running are left to the Runner.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
