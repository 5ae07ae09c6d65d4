// Package notify delivers live events to connected clients.
//
// The registry tracks open notification channels per user; the dispatcher
// serializes tagged events and broadcasts them to every channel of the
// target user. Delivery is best effort: there is no offline queue, no
// retry and no acknowledgment, and a failed send never reaches the caller.
package notify

import "sync"

// Channel is a live delivery endpoint for one connected client.
// Send must not block indefinitely; implementations buffer writes and
// report an error when the buffer is full or the connection is gone.
type Channel interface {
	Send(payload []byte) error
}

// Registry tracks the open channels of each user. It holds no other
// state and is rebuilt empty on process restart; missed notifications
// are not replayed.
//
// Safe for concurrent use. A user may hold several channels at once
// (one per open session), each registered and unregistered independently.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[Channel]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[Channel]struct{}),
	}
}

// Register adds a channel for the user.
func (r *Registry) Register(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.channels[userID]
	if !ok {
		set = make(map[Channel]struct{})
		r.channels[userID] = set
	}
	set[ch] = struct{}{}
}

// Unregister removes a channel for the user. Removing a channel that was
// never registered is a no-op.
func (r *Registry) Unregister(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.channels[userID]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.channels, userID)
	}
}

// ChannelsFor returns a snapshot of the user's open channels.
func (r *Registry) ChannelsFor(userID string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.channels[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Channel, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	return out
}
