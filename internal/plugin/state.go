package plugin

import "sync"

// Set is the orchestrator-owned table of per-plugin instance state. A hook
// returning an updated instance has it stored here for that plugin's next
// invocation, so plugin-local state persists call-to-call without hidden
// captured references.
type Set struct {
	mu        sync.Mutex
	instances map[string]*Instance
}

// NewSet creates an empty state table.
func NewSet() *Set {
	return &Set{instances: make(map[string]*Instance)}
}

// Put stores the current instance generation for a plugin.
func (s *Set) Put(name string, inst *Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[name] = inst
}

// Get returns the current instance generation for a plugin, or nil.
func (s *Set) Get(name string) *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instances[name]
}

// Names returns the plugins with stored state.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.instances))
	for name := range s.instances {
		out = append(out, name)
	}
	return out
}
