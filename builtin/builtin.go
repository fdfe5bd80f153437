// Package builtin provides the tools a toolwire server ships with.
//
// File tools read the filesystem attached to the call context with WithFS.
package builtin

import (
	"fmt"
	"slices"

	"github.com/bpowers/toolwire/mcp"
	"github.com/bpowers/toolwire/tool"
)

// Options selects which built-in tools are registered.
type Options struct {
	// AllowWrite registers write_file.
	AllowWrite bool
	// Disabled lists tool names to leave out.
	Disabled []string
}

// Tools returns the built-in tools selected by opts, in registration order.
func Tools(opts Options) []tool.Tool {
	all := []tool.Tool{
		echoTool(),
		convertCaseTool(),
		listFilesTool(),
		readFileTool(),
	}
	if opts.AllowWrite {
		all = append(all, writeFileTool())
	}

	return slices.DeleteFunc(all, func(t tool.Tool) bool {
		return slices.Contains(opts.Disabled, t.Definition().Name)
	})
}

// Register adds the built-in tools selected by opts to reg.
func Register(reg *mcp.Registry, opts Options) error {
	for _, t := range Tools(opts) {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("register builtin: %w", err)
		}
	}
	return nil
}
