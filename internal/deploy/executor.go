package deploy

import (
	"context"
	"fmt"
	"log"

	"github.com/lrproduhub/n8nctl/internal/ui"
)

// Result records the final status of every phase of a run.
type Result struct {
	Statuses map[string]Status

	// Failed names the phase that halted the pipeline, if any.
	Failed string
}

// Executor runs phases strictly in order. The first failure halts the
// pipeline; phases after it are marked skipped, never run.
type Executor struct {
	phases []Phase
}

// NewExecutor returns an Executor over the given phases.
func NewExecutor(phases []Phase) *Executor {
	return &Executor{phases: phases}
}

// Run executes the pipeline. The returned Result always covers every
// phase, including the ones a failure prevented from running.
func (e *Executor) Run(ctx context.Context, d *Context) (*Result, error) {
	res := &Result{Statuses: make(map[string]Status, len(e.phases))}
	for _, p := range e.phases {
		res.Statuses[p.Name] = StatusPending
	}

	var failure error
	for _, p := range e.phases {
		if failure != nil {
			res.Statuses[p.Name] = StatusSkipped
			continue
		}
		if p.Skip != nil && p.Skip(d) {
			res.Statuses[p.Name] = StatusSkipped
			ui.Infof("skipping %s", p.Name)
			continue
		}

		res.Statuses[p.Name] = StatusRunning
		ui.Section(p.Name)
		log.Printf("phase %s started", p.Name)

		if err := p.Run(ctx, d); err != nil {
			res.Statuses[p.Name] = StatusFailed
			res.Failed = p.Name
			failure = fmt.Errorf("phase %s: %w", p.Name, err)
			ui.Failf("%s failed", p.Name)
			log.Printf("phase %s failed: %v", p.Name, err)
			continue
		}

		res.Statuses[p.Name] = StatusSucceeded
		ui.Successf("%s complete", p.Name)
		log.Printf("phase %s succeeded", p.Name)
	}

	return res, failure
}
