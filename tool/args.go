package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Args holds the arguments of a tool call. Every value is carried as a
// string; see ParseArgs for how non-string JSON values are represented.
type Args map[string]string

// Get returns the named argument, or "" when it is absent.
func (a Args) Get(name string) string {
	return a[name]
}

// ParseArgs decodes the "arguments" member of a tool call. A missing or null
// value yields empty Args. String values are taken as-is, null values are
// treated as absent, and any other value is kept as its compact JSON text.
func ParseArgs(raw json.RawMessage) (Args, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Args{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}

	args := make(Args, len(fields))
	for name, value := range fields {
		value = bytes.TrimSpace(value)
		switch {
		case bytes.Equal(value, []byte("null")):
			continue
		case len(value) > 0 && value[0] == '"':
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, fmt.Errorf("parse argument %q: %w", name, err)
			}
			args[name] = s
		default:
			var buf bytes.Buffer
			if err := json.Compact(&buf, value); err != nil {
				return nil, fmt.Errorf("parse argument %q: %w", name, err)
			}
			args[name] = buf.String()
		}
	}
	return args, nil
}
