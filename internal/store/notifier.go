package store

import (
	"sync"

	"github.com/kencorless/UpNDown/engine"
)

// notifier is an in-process fanout hub keyed by game ID. The memory and
// sqlite backends use it directly; the redis and postgres backends use it to
// demultiplex their single server-side subscription into per-caller funcs.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]ChangeFunc
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]ChangeFunc)}
}

// add registers fn for gameID and returns a cancel func. Cancel is
// idempotent.
func (n *notifier) add(gameID string, fn ChangeFunc) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	m, ok := n.subs[gameID]
	if !ok {
		m = make(map[int]ChangeFunc)
		n.subs[gameID] = m
	}
	m[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if m, ok := n.subs[gameID]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(n.subs, gameID)
			}
		}
	}
}

// publish delivers g to every subscriber for gameID. The subscriber list is
// snapshotted under the lock and the funcs called outside it, so a slow
// subscriber cannot block add/cancel. Each subscriber gets its own clone.
func (n *notifier) publish(gameID string, g engine.GameState) {
	n.mu.Lock()
	fns := make([]ChangeFunc, 0, len(n.subs[gameID]))
	for _, f := range n.subs[gameID] {
		fns = append(fns, f)
	}
	n.mu.Unlock()
	for _, f := range fns {
		f(g.Clone())
	}
}

// count reports the number of live subscriptions for gameID.
func (n *notifier) count(gameID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[gameID])
}
