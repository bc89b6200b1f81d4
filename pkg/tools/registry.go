package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/synvya/nostrmarket/pkg/errmodel"
)

// Registry keeps tools by name. A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool. Registering an empty or duplicate name is an error.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	d := t.Describe()
	if d.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if err := CompileJSONSchema(d.InputSchema); err != nil {
		return fmt.Errorf("tool %q input schema: %w", d.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("tool %q already registered", d.Name)
	}
	r.tools[d.Name] = t
	return nil
}

// MustRegister panics on a registration error. Wiring bugs, not runtime ones.
func (r *Registry) MustRegister(ts ...Tool) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Resolve returns a tool by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors lists all registered tools, sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SafeInvoke resolves a tool, checks its permissions against the allowed set,
// validates args against the input schema and invokes it. A nil allowed set
// grants nothing.
func (r *Registry) SafeInvoke(ctx context.Context, name string, args map[string]any, allowed map[string]bool) (map[string]any, error) {
	t, ok := r.Resolve(name)
	if !ok {
		return nil, errmodel.Validation("unknown_tool", "no such tool", map[string]any{"tool": name})
	}
	d := t.Describe()
	for _, p := range d.Permissions {
		if !allowed[p] {
			return nil, errmodel.Policy("forbidden", "permission denied for tool", map[string]any{"permission": p, "tool": d.Name})
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateJSONSchema(d.InputSchema, args); err != nil {
		return nil, errmodel.Validation("invalid_input", "tool input validation failed", map[string]any{"tool": d.Name, "error": err.Error()})
	}
	return t.Invoke(ctx, args)
}
