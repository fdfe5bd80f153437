package builtin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/bpowers/toolwire/schema"
	"github.com/bpowers/toolwire/tool"
)

// DefaultEchoMessage is echoed when test_echo is called without a message.
const DefaultEchoMessage = "No message provided"

func echoTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "test_echo",
		Description: "A simple echo tool for testing MCP integration",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"message": schema.StringProp("Message to echo back"),
		}, "message"),
		Policy:   tool.SubstituteDefaults,
		Defaults: map[string]string{"message": DefaultEchoMessage},
	}, func(_ context.Context, args tool.Args) ([]tool.Content, error) {
		return tool.Text("Echo: " + args.Get("message")), nil
	})
}

var caseStyles = map[string]func(string) string{
	"snake":           strcase.ToSnake,
	"camel":           strcase.ToCamel,
	"lower_camel":     strcase.ToLowerCamel,
	"kebab":           strcase.ToKebab,
	"screaming_snake": strcase.ToScreamingSnake,
}

func caseStyleNames() []string {
	names := make([]string, 0, len(caseStyles))
	for name := range caseStyles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func convertCaseTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "convert_case",
		Description: "Convert an identifier or phrase to another naming convention",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"text": schema.StringProp("Identifier or phrase to convert"),
			"style": {
				Type:        schema.String,
				Description: "Target naming convention",
				Enum:        caseStyleNames(),
				Default:     "snake",
			},
		}, "text"),
		Policy:   tool.FailClosed,
		Defaults: map[string]string{"style": "snake"},
	}, convertCase)
}

func convertCase(_ context.Context, args tool.Args) ([]tool.Content, error) {
	style := strings.ToLower(args.Get("style"))
	convert, ok := caseStyles[style]
	if !ok {
		return nil, fmt.Errorf("unknown style %q (want one of %s)", args.Get("style"), strings.Join(caseStyleNames(), ", "))
	}
	return tool.Text(convert(args.Get("text"))), nil
}
