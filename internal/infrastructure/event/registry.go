package event

import (
	"slices"
	"sync"

	"github.com/printshop/backend/internal/domain/shared"
)

// subscription merges every registration of one handler
type subscription struct {
	handler shared.EventHandler
	all     bool
	types   map[string]struct{}
}

func (s *subscription) wants(eventType string) bool {
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry tracks which handlers receive which event types. For a
// given type, handlers registered for it explicitly come first, then the
// catch-all handlers, each group in registration order.
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []*subscription
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes, or to every event when none
// are given. Repeated registrations accumulate on the same handler.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.subs, func(s *subscription) bool { return s.handler == handler })
	if i < 0 {
		r.subs = append(r.subs, &subscription{handler: handler, types: map[string]struct{}{}})
		i = len(r.subs) - 1
	}
	sub := r.subs[i]
	if len(eventTypes) == 0 {
		sub.all = true
	}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}
}

// Unregister drops handler entirely
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	r.subs = slices.DeleteFunc(r.subs, func(s *subscription) bool { return s.handler == handler })
	r.mu.Unlock()
}

// HandlersFor returns a fresh slice of the handlers due to see eventType
func (r *HandlerRegistry) HandlersFor(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shared.EventHandler
	for _, s := range r.subs {
		if s.wants(eventType) {
			out = append(out, s.handler)
		}
	}
	for _, s := range r.subs {
		if s.all && !s.wants(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

// Len counts registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
