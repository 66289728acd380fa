// Package ws implements the real-time layer: the token authenticator,
// the connection registry and the two WebSocket endpoints (personal
// notifications and chat rooms).
package ws

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Event is a typed payload broadcast to a group. Content keys are the
// wire-level snake_case names the clients expect.
type Event struct {
	Type    string
	Content map[string]any
}

// Member is a live connection that can receive group events. Deliver
// must be safe to call from any goroutine.
type Member interface {
	Deliver(ev Event) error
}

// Registry tracks which connections belong to which broadcast group.
type Registry interface {
	// Join adds m to the group. Joining twice is a no-op.
	Join(m Member, group string)
	// Leave removes m from the group. Leaving a group m is not in
	// is a no-op.
	Leave(m Member, group string)
	// Broadcast delivers ev to every current member of the group.
	// Delivery failures for one member do not affect the others, and
	// broadcasting to an empty group does nothing.
	Broadcast(group string, ev Event)
}

// UserGroup names the personal notification group for a user.
func UserGroup(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// ChatGroup names the broadcast group for a chat room.
func ChatGroup(chatID string) string {
	return fmt.Sprintf("chat:%s", chatID)
}

// InMemoryRegistry is the single-process Registry implementation. All
// membership mutations are serialized behind one mutex.
type InMemoryRegistry struct {
	mu     sync.Mutex
	groups map[string]map[Member]struct{}
	logger zerolog.Logger
}

func NewInMemoryRegistry(logger zerolog.Logger) *InMemoryRegistry {
	return &InMemoryRegistry{
		groups: make(map[string]map[Member]struct{}),
		logger: logger.With().Str("component", "Registry").Logger(),
	}
}

func (r *InMemoryRegistry) Join(m Member, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		members = make(map[Member]struct{})
		r.groups[group] = members
	}
	members[m] = struct{}{}
}

func (r *InMemoryRegistry) Leave(m Member, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		return
	}
	delete(members, m)
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// GroupSize reports how many members a group currently has.
func (r *InMemoryRegistry) GroupSize(group string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups[group])
}

func (r *InMemoryRegistry) Broadcast(group string, ev Event) {
	// Snapshot the member set so we don't hold the lock during writes.
	r.mu.Lock()
	members := make([]Member, 0, len(r.groups[group]))
	for m := range r.groups[group] {
		members = append(members, m)
	}
	r.mu.Unlock()

	for _, m := range members {
		if err := m.Deliver(ev); err != nil {
			r.logger.Warn().Err(err).
				Str("group", group).
				Str("event", ev.Type).
				Msg("Failed to deliver event to group member")
		}
	}
}
