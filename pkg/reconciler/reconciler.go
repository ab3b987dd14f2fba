package reconciler

import (
	"fmt"
	"sort"

	"k8s.io/klog/v2"

	"github.com/plgrid/hpc-storage/pkg/bursar"
	"github.com/plgrid/hpc-storage/pkg/grants"
	"github.com/plgrid/hpc-storage/pkg/metadata"
	"github.com/plgrid/hpc-storage/pkg/quota"
	"github.com/plgrid/hpc-storage/pkg/system"
)

// Provisioner creates project directories; satisfied by provision.Manager.
type Provisioner interface {
	Exists(base, group string) bool
	EnsureDirectory(base, group string, gid int) (string, error)
}

// Config carries the reconciliation policy.
type Config struct {
	// BasePath is the directory holding one project directory per group.
	BasePath string
	// Filesystem is the mount the quota tool is scoped to.
	Filesystem string
	// MinQuotaGB floors every applied quota so a present group is never
	// fully locked out of its directory.
	MinQuotaGB int64
	Rules      grants.Rules
}

// Engine brings every group's project directory and block quota in line with
// the capacity its active grants allocate. Groups are processed strictly
// sequentially; a failure on one group never stops the rest.
type Engine struct {
	cfg    Config
	groups system.Resolver
	quotas quota.Manager
	dirs   Provisioner
}

func New(cfg Config, groups system.Resolver, quotas quota.Manager, dirs Provisioner) *Engine {
	if cfg.MinQuotaGB < 1 {
		cfg.MinQuotaGB = 1
	}
	return &Engine{cfg: cfg, groups: groups, quotas: quotas, dirs: dirs}
}

// Result is the outcome of reconciling one group.
type Result struct {
	metadata.GroupState
	Err error
}

// Report aggregates one reconcile pass.
type Report struct {
	Results []Result
	// Orphans are grants naming groups the registry itself does not list.
	Orphans []bursar.Grant
}

func (r *Report) Count(o metadata.Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failed reports whether any group failed to reconcile.
func (r *Report) Failed() bool { return r.Count(metadata.OutcomeFailed) > 0 }

// States returns the per-group states for the metadata store.
func (r *Report) States() []metadata.GroupState {
	out := make([]metadata.GroupState, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res.GroupState)
	}
	return out
}

// Summary is a one-line digest for the log.
func (r *Report) Summary() string {
	return fmt.Sprintf("provisioned=%d updated=%d unchanged=%d skipped=%d failed=%d orphan_grants=%d",
		r.Count(metadata.OutcomeProvisioned), r.Count(metadata.OutcomeUpdated),
		r.Count(metadata.OutcomeUnchanged), r.Count(metadata.OutcomeSkipped),
		r.Count(metadata.OutcomeFailed), len(r.Orphans))
}

// Reconcile runs one pass over the registry data. Desired state is recomputed
// from scratch every pass; the filesystem is the only state carried between
// runs, so a pass is always safe to repeat.
func (e *Engine) Reconcile(data *bursar.GrantData) *Report {
	plans, orphans := grants.ComputeGroupPlans(data.Grants, data.Groups, e.cfg.Rules)
	for _, g := range orphans {
		klog.InfoS("Grant names a group unknown to the registry", "grant", g.Name, "group", g.Group)
	}

	names := make([]string, 0, len(plans))
	for name := range plans {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &Report{Orphans: orphans}
	for _, name := range names {
		report.Results = append(report.Results, e.reconcileGroup(name, plans[name]))
	}
	return report
}

func (e *Engine) reconcileGroup(name string, plannedGB int64) Result {
	st := metadata.GroupState{Group: name, DesiredGB: plannedGB}

	gid, ok, err := e.groups.LookupGid(name)
	if err != nil {
		st.Outcome = metadata.OutcomeFailed
		return Result{GroupState: st, Err: fmt.Errorf("resolve group %s: %w", name, err)}
	}
	if !ok {
		klog.V(2).InfoS("Group not present in the system", "group", name)
		st.Outcome = metadata.OutcomeSkipped
		return Result{GroupState: st}
	}
	st.Gid = gid

	applied := plannedGB
	if applied < e.cfg.MinQuotaGB {
		applied = e.cfg.MinQuotaGB
	}
	st.DesiredGB = applied

	klog.V(2).InfoS("Reconciling group", "group", name, "gid", gid, "capacityGB", applied)

	if !e.dirs.Exists(e.cfg.BasePath, name) {
		if _, err := e.dirs.EnsureDirectory(e.cfg.BasePath, name, gid); err != nil {
			st.Outcome = metadata.OutcomeFailed
			return Result{GroupState: st, Err: err}
		}
		// A fresh directory has no quota entry; set it unconditionally.
		if err := e.quotas.SetLimit(e.cfg.Filesystem, gid, applied); err != nil {
			st.Outcome = metadata.OutcomeFailed
			return Result{GroupState: st, Err: fmt.Errorf("set quota for new directory of %s: %w", name, err)}
		}
		klog.InfoS("Provisioned project directory", "group", name, "gid", gid, "quotaGB", applied)
		st.CurrentGB = applied
		st.Outcome = metadata.OutcomeProvisioned
		return Result{GroupState: st}
	}

	current, found, err := e.quotas.Query(e.cfg.Filesystem, gid)
	if err != nil {
		st.Outcome = metadata.OutcomeFailed
		return Result{GroupState: st, Err: fmt.Errorf("query quota for %s: %w", name, err)}
	}
	if found && current == applied {
		st.CurrentGB = current
		st.Outcome = metadata.OutcomeUnchanged
		return Result{GroupState: st}
	}
	if err := e.quotas.SetLimit(e.cfg.Filesystem, gid, applied); err != nil {
		st.CurrentGB = current
		st.Outcome = metadata.OutcomeFailed
		return Result{GroupState: st, Err: fmt.Errorf("set quota for %s: %w", name, err)}
	}
	klog.InfoS("Corrected quota", "group", name, "gid", gid, "fromGB", current, "toGB", applied, "hadEntry", found)
	st.CurrentGB = applied
	st.Outcome = metadata.OutcomeUpdated
	return Result{GroupState: st}
}
