// Package tool defines the unit of invocable functionality a server exposes:
// a schema-described definition paired with the function that runs it.
package tool

import (
	"context"
	"fmt"
	"maps"

	"github.com/bpowers/toolwire/schema"
)

// ContentType identifies the kind of a content item.
type ContentType string

// TextContent is the only content type tools produce.
const TextContent ContentType = "text"

// Content is one unit of a tool's result.
type Content struct {
	Type ContentType `json:"type"`
	Text string      `json:"text"`
}

// Text returns a single text content item.
func Text(s string) []Content {
	return []Content{{Type: TextContent, Text: s}}
}

// Policy decides what happens when a required argument is missing.
type Policy int

const (
	// SubstituteDefaults fills missing required arguments with the declared
	// default, or with the definition's Placeholder when there is none.
	SubstituteDefaults Policy = iota
	// FailClosed rejects a call that is missing a required argument.
	FailClosed
)

func (p Policy) String() string {
	switch p {
	case SubstituteDefaults:
		return "substitute-defaults"
	case FailClosed:
		return "fail-closed"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Definition describes a tool: its advertised name, description and input
// schema, plus the argument policy applied before the tool runs.
type Definition struct {
	Name        string
	Description string
	InputSchema *schema.JSON

	Policy      Policy
	Defaults    map[string]string
	Placeholder string
}

// MissingArgumentError is returned when a FailClosed tool is called without
// one of its required arguments.
type MissingArgumentError struct {
	Tool     string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument %q for tool %s", e.Argument, e.Tool)
}

// Resolve applies the definition's argument policy to args and returns the
// arguments the tool should see. args is not modified.
func (d Definition) Resolve(args Args) (Args, error) {
	resolved := make(Args, len(args)+len(d.Defaults))
	maps.Copy(resolved, args)

	for name, value := range d.Defaults {
		if _, ok := resolved[name]; !ok {
			resolved[name] = value
		}
	}

	if d.InputSchema == nil {
		return resolved, nil
	}
	for _, name := range d.InputSchema.Required {
		if _, ok := resolved[name]; ok {
			continue
		}
		if d.Policy == FailClosed {
			return nil, &MissingArgumentError{Tool: d.Name, Argument: name}
		}
		resolved[name] = d.Placeholder
	}

	return resolved, nil
}

// Tool is a callable unit registered with a server.
type Tool interface {
	// Definition returns the tool's static description.
	Definition() Definition
	// Call runs the tool with already-resolved arguments.
	Call(ctx context.Context, args Args) ([]Content, error)
}

// Func is the function signature adapted by New.
type Func func(ctx context.Context, args Args) ([]Content, error)

type funcTool struct {
	def Definition
	fn  Func
}

// New pairs a definition with the function that implements it.
func New(def Definition, fn Func) Tool {
	return &funcTool{def: def, fn: fn}
}

func (t *funcTool) Definition() Definition {
	return t.def
}

func (t *funcTool) Call(ctx context.Context, args Args) ([]Content, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("tool %s: no implementation", t.def.Name)
	}
	return t.fn(ctx, args)
}
