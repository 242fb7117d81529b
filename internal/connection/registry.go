package connection

import (
	"sort"
	"sync"
)

// Registry tracks the set of topics the client wants delivered, independent
// of whether a transport is currently open. It performs no I/O; the Manager
// reads Topics once per successful open and sends the full set, because the
// server keeps no subscription state across disconnects.
type Registry struct {
	mu     sync.Mutex
	topics map[string]struct{}
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string]struct{})}
}

// Subscribe adds a topic to the desired set. Adding an existing topic is a
// no-op.
func (r *Registry) Subscribe(topic string) {
	if topic == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[topic] = struct{}{}
}

// Unsubscribe removes a topic from the desired set.
func (r *Registry) Unsubscribe(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.topics, topic)
}

// Topics returns the desired set, sorted for stable wire frames and logs.
func (r *Registry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of desired topics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}
