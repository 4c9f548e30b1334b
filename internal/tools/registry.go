package tools

import (
	"github.com/pkg/errors"
)

// Registry holds tools in registration order. It is built once per session
// and read-only afterwards.
type Registry struct {
	tools []*Tool
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t *Tool) error {
	if t == nil {
		return errors.New("cannot register nil tool")
	}
	if _, exists := r.index[t.Name()]; exists {
		return errors.Errorf("tool already registered: %s", t.Name())
	}
	r.index[t.Name()] = len(r.tools)
	r.tools = append(r.tools, t)
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (*Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.tools[i], true
}

// List returns the registered tools in order.
func (r *Registry) List() []*Tool {
	out := make([]*Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Name()
	}
	return out
}

func (r *Registry) Len() int { return len(r.tools) }
