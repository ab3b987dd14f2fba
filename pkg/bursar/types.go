package bursar

// Grant mirrors one entry of the registry's admin/grants_group_info payload.
type Grant struct {
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	Group       string       `json:"group"`
	Allocations []Allocation `json:"allocations"`
}

// Allocation is a single resource award within a grant. Storage allocations
// carry their size in the "capacity" parameter, in gigabytes.
type Allocation struct {
	Resource   string           `json:"resource"`
	Parameters map[string]int64 `json:"parameters"`
}

type Group struct {
	Name string `json:"name"`
}

// GrantData is the full registry listing consumed by one reconcile pass.
type GrantData struct {
	Groups []Group `json:"groups"`
	Grants []Grant `json:"grants"`
}
