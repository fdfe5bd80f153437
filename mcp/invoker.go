package mcp

import (
	"context"
	"fmt"

	"github.com/bpowers/toolwire/tool"
)

// UnknownToolError is returned when a call names a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "Unknown tool: " + e.Name
}

// Invoker runs registered tools.
type Invoker struct {
	registry *Registry
}

// NewInvoker returns an Invoker backed by registry.
func NewInvoker(registry *Registry) *Invoker {
	return &Invoker{registry: registry}
}

// Invoke resolves args against the tool's argument policy and runs it.
// Panics inside the tool are recovered and returned as errors.
func (i *Invoker) Invoke(ctx context.Context, name string, args tool.Args) (content []tool.Content, err error) {
	t, ok := i.registry.Get(name)
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	resolved, err := t.Definition().Resolve(args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = &panicError{tool: name, value: r}
		}
	}()

	content, err = t.Call(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	if content == nil {
		content = []tool.Content{}
	}
	return content, nil
}

type panicError struct {
	tool  string
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("tool %s panicked: %v", e.tool, e.value)
}
