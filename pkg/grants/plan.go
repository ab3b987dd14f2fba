package grants

import (
	"strings"

	"github.com/plgrid/hpc-storage/pkg/bursar"
)

// CapacityParameter is the allocation parameter holding gigabytes of storage.
const CapacityParameter = "capacity"

// Rules names the registry conventions that differ between bursar
// deployments: which status strings mark a grant as active, and how the
// storage resource is spelled.
type Rules struct {
	ActiveStatuses   []string
	StorageResources []string
	// FoldResourceCase also accepts resource tags that differ from the
	// registered spellings only in case.
	FoldResourceCase bool
}

func DefaultRules() Rules {
	return Rules{
		ActiveStatuses:   []string{"active", "accepted"},
		StorageResources: []string{"storage", "Storage"},
	}
}

// Active reports whether the grant carries one of the recognized active
// markers. Matching is substring-based: registries emit compound statuses
// like "grant_active".
func (r Rules) Active(g bursar.Grant) bool {
	for _, marker := range r.ActiveStatuses {
		if strings.Contains(g.Status, marker) {
			return true
		}
	}
	return false
}

func (r Rules) storageResource(resource string) bool {
	for _, tag := range r.StorageResources {
		if tag == resource {
			return true
		}
		if r.FoldResourceCase && strings.EqualFold(tag, resource) {
			return true
		}
	}
	return false
}

// ComputeGroupPlans sums the storage capacity of every active grant per
// group. Every group listed by the registry appears in the result, with 0
// when nothing is allocated; minimum-quota flooring is reconciliation policy
// and happens in the reconciler, not here. The second return lists grants
// whose group is missing from the registry's own group listing.
func ComputeGroupPlans(grantList []bursar.Grant, groups []bursar.Group, rules Rules) (map[string]int64, []bursar.Grant) {
	plans := make(map[string]int64, len(groups))
	for _, g := range groups {
		plans[g.Name] = 0
	}

	var orphans []bursar.Grant
	for _, g := range grantList {
		if !rules.Active(g) {
			continue
		}
		if _, known := plans[g.Group]; !known {
			orphans = append(orphans, g)
			continue
		}
		for _, alloc := range g.Allocations {
			if !rules.storageResource(alloc.Resource) {
				continue
			}
			plans[g.Group] += alloc.Parameters[CapacityParameter]
		}
	}
	return plans, orphans
}
