// Package schema declares JSON Schema documents for tool inputs.
//
// Schemas are only declared and advertised; nothing in this module validates
// arguments against them.
package schema

const URL = "http://json-schema.org/draft-07/schema#"

type Type string

const (
	String  Type = "string"
	Number  Type = "number"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

// JSON is a way to describe a JSON Schema
type JSON struct {
	Type                 interface{}      `json:"type,omitzero"` // Can be Type or []interface{} for union types like ["string", "null"]
	Description          string           `json:"description,omitzero"`
	Properties           map[string]*JSON `json:"properties,omitzero"`
	Items                *JSON            `json:"items,omitzero"`
	Enum                 []string         `json:"enum,omitzero"`
	Default              interface{}      `json:"default,omitzero"`
	Required             []string         `json:"required,omitzero"`
	AdditionalProperties *bool            `json:"additionalProperties,omitzero"`
	Schema               string           `json:"$schema,omitzero"`
	OneOf                []*JSON          `json:"oneOf,omitzero"`
	AnyOf                []*JSON          `json:"anyOf,omitzero"`
	AllOf                []*JSON          `json:"allOf,omitzero"`
}

// StringProp returns a string property with the given description.
func StringProp(description string) *JSON {
	return &JSON{Type: String, Description: description}
}

// Obj returns an object schema with the given properties and required names.
func Obj(props map[string]*JSON, required ...string) *JSON {
	return &JSON{
		Type:       Object,
		Properties: props,
		Required:   required,
	}
}
