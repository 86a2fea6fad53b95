package generation

// Registry holds generation backends by name, preserving registration order.
type Registry struct {
	backends map[string]Backend
	order    []string
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend. Re-registering a name replaces the backend and
// keeps its original position.
func (r *Registry) Register(b Backend) {
	name := b.Name()
	if _, ok := r.backends[name]; !ok {
		r.order = append(r.order, name)
	}
	r.backends[name] = b
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.backends[name]
	return b, ok
}

// Names returns all registered backend names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Available returns the names of backends that currently report availability,
// in registration order.
func (r *Registry) Available() []string {
	var out []string
	for _, name := range r.order {
		if r.backends[name].Available() {
			out = append(out, name)
		}
	}
	return out
}
