package metadata

import "sync"

// Outcome classifies what a reconcile pass did for one group.
type Outcome string

const (
	OutcomeProvisioned Outcome = "provisioned"
	OutcomeUpdated     Outcome = "updated"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

// GroupState is the last observed reconciliation state of one group.
type GroupState struct {
	Group     string
	Gid       int
	DesiredGB int64 // desired capacity after minimum-quota flooring
	CurrentGB int64 // limit in effect after the pass
	Outcome   Outcome
}

// Store holds the result of the most recent reconcile pass for the metrics
// exporter. The pass writes, collectors read.
type Store struct {
	mu   sync.RWMutex
	data map[string]GroupState
}

func NewStore() *Store {
	return &Store{data: make(map[string]GroupState)}
}

func (s *Store) Update(st GroupState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[st.Group] = st
}

// Replace swaps in the full result of a pass, dropping groups that have
// disappeared from the registry.
func (s *Store) Replace(states []GroupState) {
	next := make(map[string]GroupState, len(states))
	for _, st := range states {
		next[st.Group] = st
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
}

func (s *Store) Get(group string) (GroupState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[group]
	return st, ok
}

func (s *Store) List() []GroupState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GroupState, 0, len(s.data))
	for _, st := range s.data {
		out = append(out, st)
	}
	return out
}
