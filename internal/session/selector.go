package session

import (
	"context"
	"sync"
)

// Selector tracks the active session per (owner, feature). Selections
// are ephemeral and live for the process lifetime only.
//
// When no explicit selection is recorded, the most recently created
// session is the default.
type Selector struct {
	store *Store

	mu     sync.Mutex
	active map[selectorKey]string
}

type selectorKey struct {
	owner   string
	feature string
}

// NewSelector creates a Selector over store.
func NewSelector(store *Store) *Selector {
	return &Selector{
		store:  store,
		active: make(map[selectorKey]string),
	}
}

// Select records an explicit active session for (owner, feature).
func (sel *Selector) Select(owner, feature, id string) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	sel.active[selectorKey{owner, feature}] = id
}

// Forget clears the selection if it points at id. Called when a session
// is deleted so the default takes over again.
func (sel *Selector) Forget(owner, feature, id string) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	key := selectorKey{owner, feature}
	if sel.active[key] == id {
		delete(sel.active, key)
	}
}

// ForgetAll clears any selection for (owner, feature).
func (sel *Selector) ForgetAll(owner, feature string) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	delete(sel.active, selectorKey{owner, feature})
}

// Active returns the active session id for (owner, feature): the
// recorded selection if it still exists, otherwise the most recently
// created session. Returns "" when no sessions exist.
func (sel *Selector) Active(ctx context.Context, owner, feature string) (string, error) {
	sessions, err := sel.store.List(ctx, owner, feature)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		sel.ForgetAll(owner, feature)
		return "", nil
	}

	sel.mu.Lock()
	selected, ok := sel.active[selectorKey{owner, feature}]
	sel.mu.Unlock()

	if ok {
		for _, sess := range sessions {
			if sess.ID == selected {
				return selected, nil
			}
		}
		// Stale selection; fall through to the default.
		sel.Forget(owner, feature, selected)
	}

	return sessions[len(sessions)-1].ID, nil
}
