package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Default janitor settings.
const (
	DefaultSchedule  = "0 * * * *" // top of every hour
	DefaultRetention = 30 * 24 * time.Hour
)

// tempMaxAge is how old a temp file must be before the janitor removes
// it. Younger files may belong to a save still in flight.
const tempMaxAge = time.Hour

// janitorParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var janitorParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Janitor periodically prunes old screenshot rows and removes stale
// temp files left behind by interrupted saves.
type Janitor struct {
	store     *Store
	shotDir   string
	schedule  cron.Schedule
	retention time.Duration
	out       io.Writer

	mu        sync.Mutex
	lastSweep time.Time
}

// JanitorOpts holds parameters for creating a Janitor.
type JanitorOpts struct {
	Store     *Store
	ShotDir   string        // optional; the temp-file sweep is skipped when empty
	Schedule  string        // 5-field cron expression, defaults to DefaultSchedule
	Retention time.Duration // defaults to DefaultRetention
	Out       io.Writer     // defaults to os.Stdout
}

// NewJanitor creates a Janitor.
func NewJanitor(opts JanitorOpts) (*Janitor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store: janitor: store is required")
	}
	expr := opts.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}
	sched, err := janitorParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("store: janitor: parse schedule %q: %w", expr, err)
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Janitor{
		store:     opts.Store,
		shotDir:   opts.ShotDir,
		schedule:  sched,
		retention: retention,
		out:       out,
	}, nil
}

// Run sweeps on the configured schedule until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	for {
		next := j.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := j.Sweep(); err != nil {
				log.Printf("store: janitor: sweep: %v", err)
			}
		}
	}
}

// Sweep runs one maintenance pass: prune screenshot rows older than the
// retention window, then remove stale temp files.
func (j *Janitor) Sweep() error {
	cutoff := time.Now().Add(-j.retention)
	pruned, err := j.store.PruneScreenshots(cutoff)
	if err != nil {
		return err
	}
	removed := j.sweepTempFiles()
	if pruned > 0 || removed > 0 {
		fmt.Fprintf(j.out, "store: janitor: pruned %d rows, removed %d temp files\n", pruned, removed)
	}
	j.mu.Lock()
	j.lastSweep = time.Now()
	j.mu.Unlock()
	return nil
}

// sweepTempFiles removes *-temp* files older than tempMaxAge from the
// screenshot directory. Returns how many were removed.
func (j *Janitor) sweepTempFiles() int {
	if j.shotDir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(j.shotDir, "*-temp*"))
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-tempMaxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("store: janitor: remove %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed
}

// LastSweep returns when the last sweep completed.
func (j *Janitor) LastSweep() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSweep
}
