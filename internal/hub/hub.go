// Package hub is the in-process connection registry: it fans ledger events
// out to every live subscription a user holds. Delivery is best-effort —
// the ledger has committed before a notification is attempted, and a slow or
// broken subscriber never blocks the sender or other recipients.
package hub

import (
	"log/slog"
	"sync"

	"github.com/ckocyigit/duoledger/internal/ledger"
)

// subscriberBuffer is the per-subscription channel depth. A subscriber that
// falls this far behind starts losing events rather than blocking delivery.
const subscriberBuffer = 16

// Hub implements ledger.Notifier with per-user subscriber channels.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan ledger.Event]struct{}
}

var _ ledger.Notifier = (*Hub)(nil)

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[string]map[chan ledger.Event]struct{})}
}

// Subscribe registers a live connection for the user and returns the event
// channel plus a cancel function. Cancel is idempotent and closes the
// channel.
func (h *Hub) Subscribe(userID string) (<-chan ledger.Event, func()) {
	ch := make(chan ledger.Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan ledger.Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Notify delivers an event to all of the user's subscriptions. Non-blocking:
// a full subscriber buffer drops the event for that subscriber only.
func (h *Hub) Notify(userID string, event ledger.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[userID] {
		select {
		case ch <- event:
		default:
			slog.Warn("dropping event for slow subscriber", "user_id", userID)
		}
	}
}

// IsOnline reports whether the user has at least one live subscription.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID]) > 0
}
