package hook

// Registry is a nested mapping from event type to registration name to the
// ordered sequence of hooks registered at that cell. Order within a cell is
// insertion order, which is also execution order.
//
// Lookups for unknown keys yield an empty sequence, never an error, and
// intermediate levels are created on demand.
//
// Registry performs no internal synchronization. The Observer serializes
// registration and dispatch with one lock, because hooks must not be added or
// removed while a trigger pass is iterating them.
type Registry struct {
	hooks map[EventType]map[string][]*Hook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[EventType]map[string][]*Hook),
	}
}

// Register appends a hook to the cell at (t, name), creating intermediate
// levels as needed.
func (r *Registry) Register(t EventType, name string, h *Hook) {
	byName, ok := r.hooks[t]
	if !ok {
		byName = make(map[string][]*Hook)
		r.hooks[t] = byName
	}
	byName[name] = append(byName[name], h)
}

// Unregister removes and returns the oldest hook at (t, name). Removal is
// FIFO by design: it disposes of the earliest registration at the cell rather
// than matching a particular callback. Returns nil when the cell is empty.
func (r *Registry) Unregister(t EventType, name string) *Hook {
	byName, ok := r.hooks[t]
	if !ok {
		return nil
	}
	hooks := byName[name]
	if len(hooks) == 0 {
		return nil
	}
	h := hooks[0]
	byName[name] = hooks[1:]
	return h
}

// Remove deletes the hook with the given id from the cell at (t, name).
// Used for the exactly-once removal of Once-tagged hooks, which must delete
// that specific registration. Returns true if a hook was removed.
func (r *Registry) Remove(t EventType, name string, id string) bool {
	byName, ok := r.hooks[t]
	if !ok {
		return false
	}
	hooks := byName[name]
	for i, h := range hooks {
		if h.ID == id {
			byName[name] = append(hooks[:i:i], hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of the hooks at (t, name) in insertion order. The copy
// keeps a trigger pass stable while Once hooks unregister themselves.
func (r *Registry) Get(t EventType, name string) []*Hook {
	byName, ok := r.hooks[t]
	if !ok {
		return nil
	}
	hooks := byName[name]
	if len(hooks) == 0 {
		return nil
	}
	out := make([]*Hook, len(hooks))
	copy(out, hooks)
	return out
}

// Each yields every hook at (t, name) in insertion order. It iterates over a
// stable copy, so the visitor may unregister hooks.
func (r *Registry) Each(t EventType, name string, fn func(*Hook)) {
	for _, h := range r.Get(t, name) {
		fn(h)
	}
}

// Len returns the total number of registered hooks.
func (r *Registry) Len() int {
	n := 0
	for _, byName := range r.hooks {
		for _, hooks := range byName {
			n += len(hooks)
		}
	}
	return n
}

// Clear removes all hooks.
func (r *Registry) Clear() {
	r.hooks = make(map[EventType]map[string][]*Hook)
}
