package reporter

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/plgrid/hpc-storage/pkg/bursar"
	"github.com/plgrid/hpc-storage/pkg/metadata"
	"github.com/plgrid/hpc-storage/pkg/reconciler"
)

// GrantSource is the slice of the bursar client the loop needs.
type GrantSource interface {
	FetchGrantData(ctx context.Context) (*bursar.GrantData, error)
}

// Reconciler is satisfied by reconciler.Engine.
type Reconciler interface {
	Reconcile(data *bursar.GrantData) *reconciler.Report
}

// Runner drives fetch-and-reconcile passes and publishes their results to
// the metadata store.
type Runner struct {
	source   GrantSource
	engine   Reconciler
	store    *metadata.Store
	Interval time.Duration
}

func NewRunner(source GrantSource, engine Reconciler, store *metadata.Store, interval time.Duration) *Runner {
	return &Runner{
		source:   source,
		engine:   engine,
		store:    store,
		Interval: interval,
	}
}

// RunOnce executes a single pass. A fetch failure aborts before any mutation.
func (r *Runner) RunOnce(ctx context.Context) (*reconciler.Report, error) {
	data, err := r.source.FetchGrantData(ctx)
	if err != nil {
		return nil, err
	}

	report := r.engine.Reconcile(data)
	r.store.Replace(report.States())

	for _, res := range report.Results {
		if res.Err != nil {
			klog.ErrorS(res.Err, "Group reconciliation failed", "group", res.Group)
		}
	}
	klog.InfoS("Reconcile pass finished", "summary", report.Summary())
	return report, nil
}

// Run executes passes on a fixed interval until the context is cancelled.
// A failed pass is only logged: the next tick recomputes desired state from
// scratch, so nothing is lost by waiting.
func (r *Runner) Run(ctx context.Context) {
	klog.InfoS("Starting reconcile loop", "interval", r.Interval)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	pass := func() {
		if _, err := r.RunOnce(ctx); err != nil {
			klog.ErrorS(err, "Reconcile pass aborted")
		}
	}

	// First pass immediately, then on the ticker.
	pass()

	for {
		select {
		case <-ctx.Done():
			klog.Info("Reconcile loop stopped")
			return
		case <-ticker.C:
			pass()
		}
	}
}
