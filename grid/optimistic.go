package grid

import "context"

// mutation describes one optimistic change. S is the snapshot type, which
// sets the rollback granularity: a whole Categories map, one category's
// slice or a single item.
type mutation[S any] struct {
	action string
	take   func(st *State) S
	apply  func(st *State) error
	revert func(st *State, snap S)
	commit func(ctx context.Context) error
}

// runOptimistic snapshots and applies the change under the store lock, then
// commits it to the backend without holding the lock. A failed commit puts
// the snapshot back and records a user-facing error. The snapshot is taken
// from whatever the state holds at that moment, including other unconfirmed
// changes.
func runOptimistic[S any](ctx context.Context, s *Store, m mutation[S]) bool {
	s.mu.Lock()
	snap := m.take(&s.st)
	if err := m.apply(&s.st); err != nil {
		s.st.Err = describe(m.action, err)
		s.mu.Unlock()
		s.notify()
		return false
	}
	s.st.Err = ""
	s.mu.Unlock()
	s.notify()

	if err := m.commit(ctx); err != nil {
		s.log.Warn("optimistic update rejected, reverting", "action", m.action, "err", err)
		s.mu.Lock()
		m.revert(&s.st, snap)
		s.st.Err = describe(m.action, err)
		s.mu.Unlock()
		s.notify()
		return false
	}
	return true
}

func takeAll(st *State) Categories { return st.Categories.Clone() }

func revertAll(st *State, snap Categories) { st.Categories = snap }
