package mcp

import (
	"context"

	"github.com/bpowers/toolwire/schema"
	"github.com/bpowers/toolwire/tool"
)

type stubTool struct {
	def        tool.Definition
	result     []tool.Content
	err        error
	calledWith *tool.Args
}

func (s *stubTool) Definition() tool.Definition {
	return s.def
}

func (s *stubTool) Call(_ context.Context, args tool.Args) ([]tool.Content, error) {
	if s.calledWith != nil {
		*s.calledWith = args
	}
	return s.result, s.err
}

var _ tool.Tool = (*stubTool)(nil)

func newStubTool(name, description string) *stubTool {
	return &stubTool{
		def: tool.Definition{
			Name:        name,
			Description: description,
			InputSchema: schema.Obj(nil),
		},
		result: tool.Text(name + " ran"),
	}
}

// echoTool mirrors the reference echo tool.
func echoTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "test_echo",
		Description: "A simple echo tool for testing MCP integration",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"message": schema.StringProp("Message to echo back"),
		}, "message"),
		Defaults: map[string]string{"message": "No message provided"},
	}, func(_ context.Context, args tool.Args) ([]tool.Content, error) {
		return tool.Text("Echo: " + args.Get("message")), nil
	})
}

// strictTool fails closed on its required argument.
func strictTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "strict",
		Description: "requires name",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"name": schema.StringProp("who"),
		}, "name"),
		Policy: tool.FailClosed,
	}, func(_ context.Context, args tool.Args) ([]tool.Content, error) {
		return tool.Text("hello " + args.Get("name")), nil
	})
}

// panicTool is a test tool that panics when called
type panicTool struct{}

func (panicTool) Definition() tool.Definition {
	return tool.Definition{
		Name:        "PanicTool",
		Description: "A tool that panics for testing",
		InputSchema: schema.Obj(nil),
	}
}

func (panicTool) Call(_ context.Context, _ tool.Args) ([]tool.Content, error) {
	panic("intentional panic for testing")
}

var _ tool.Tool = panicTool{}
