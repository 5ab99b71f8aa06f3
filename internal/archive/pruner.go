package archive

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Pruner deletes archived turns older than the retention window on a cron
// schedule.
type Pruner struct {
	store     *Store
	retention time.Duration
	schedule  cron.Schedule
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// PrunerOpts holds parameters for creating a Pruner.
type PrunerOpts struct {
	Store         *Store
	RetentionDays int    // must be positive
	Schedule      string // 5-field cron expression
	Now           func() time.Time
}

// NewPruner creates a Pruner. The schedule is validated here so a bad
// expression fails at startup.
func NewPruner(opts PrunerOpts) (*Pruner, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("archive: pruner: store is required")
	}
	if opts.RetentionDays <= 0 {
		return nil, fmt.Errorf("archive: pruner: retention days must be positive, got %d", opts.RetentionDays)
	}
	sched, err := cronParser.Parse(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("archive: pruner: parse schedule %q: %w", opts.Schedule, err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pruner{
		store:     opts.Store,
		retention: time.Duration(opts.RetentionDays) * 24 * time.Hour,
		schedule:  sched,
		now:       now,
	}, nil
}

// Cutoff returns the creation time before which turns are pruned.
func (p *Pruner) Cutoff() time.Time {
	return p.now().Add(-p.retention)
}

// RunOnce prunes expired turns immediately.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.Cutoff()
	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("archive: pruned %d turns created before %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// Start runs the pruner on its schedule until Stop is called.
func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return
	}
	c := cron.New(cron.WithParser(cronParser))
	c.Schedule(p.schedule, cron.FuncJob(func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			log.Printf("archive: scheduled prune: %v", err)
		}
	}))
	c.Start()
	p.cron = c
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Next returns the next scheduled run after the current time.
func (p *Pruner) Next() time.Time {
	return p.schedule.Next(p.now())
}
