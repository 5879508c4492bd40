package pricing

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger fires the sweep on a fixed period. The only component with a
// temporal side effect of its own; everything else is pure given the clock.
type Trigger struct {
	Engine   *Engine
	Interval time.Duration

	sched *cron.Cron
}

func NewTrigger(e *Engine, interval time.Duration, loc *time.Location) *Trigger {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Trigger{
		Engine:   e,
		Interval: interval,
		sched:    cron.New(cron.WithLocation(loc)),
	}
}

func (t *Trigger) Start(ctx context.Context) {
	t.sched.Schedule(cron.Every(t.Interval), cron.FuncJob(func() {
		if err := t.Engine.SweepAll(ctx); err != nil {
			log.Printf("pricing: sweep: %v", err)
		}
	}))
	t.sched.Start()
	log.Printf("pricing: sweep trigger started, every %s", t.Interval)
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (t *Trigger) Stop() {
	<-t.sched.Stop().Done()
}
