package mcp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bpowers/toolwire/tool"
)

var (
	// ErrToolNotFound is returned by Describe for names with no registered tool.
	ErrToolNotFound = errors.New("tool not found")
	// ErrDuplicateTool is returned by Register when the name is already taken.
	ErrDuplicateTool = errors.New("duplicate tool")
)

// Registry holds the tools exposed by a server. Each entry pairs a tool's
// advertised definition with the code that runs it, so a tool is added with a
// single Register call.
type Registry struct {
	mu    sync.Mutex
	tools map[string]tool.Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]tool.Tool),
		order: make([]string, 0),
	}
}

// Register adds a tool to the registry. Tool names must be unique.
func (r *Registry) Register(t tool.Tool) error {
	if t == nil {
		return fmt.Errorf("register tool: nil tool")
	}

	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("register tool: missing tool name")
	}
	if def.InputSchema == nil {
		return fmt.Errorf("register tool: missing input schema for %q", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("register tool %q: %w", def.Name, ErrDuplicateTool)
	}

	r.tools[def.Name] = t
	r.order = append(r.order, def.Name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (tool.Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tools[name]
	return t, ok
}

// Describe returns the advertised definition of the named tool.
func (r *Registry) Describe(name string) (ToolDefinition, error) {
	t, ok := r.Get(name)
	if !ok {
		return ToolDefinition{}, fmt.Errorf("describe %q: %w", name, ErrToolNotFound)
	}
	return toolDefinition(t), nil
}

// List returns the definitions of all registered tools in registration order.
// This is used by tools/list.
func (r *Registry) List() []ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, toolDefinition(r.tools[name]))
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func toolDefinition(t tool.Tool) ToolDefinition {
	def := t.Definition()
	return ToolDefinition{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: def.InputSchema,
	}
}
