// Package tools defines the operations the AI assistant may invoke during a
// conversation, and the registry that dispatches them. Every tool delegates
// to the engagement service; nothing here touches the store directly, so the
// domain invariants and error taxonomy hold regardless of which caller - the
// model or a human - triggers the operation.
package tools

import (
	"context"
)

// Property describes a single parameter for the tool's JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema defines the expected arguments for LLM tool calling.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution. The result string is
// handed back to the model verbatim.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one operation the assistant can call.
type Tool struct {
	// Name is the unique identifier, as the model sees it.
	Name string

	// Description explains what the tool does, for the model's benefit.
	Description string

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema
}

// Validate checks if the tool definition is usable.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Result wraps the outcome of one tool execution.
type Result struct {
	ToolName   string
	Output     string
	Err        error
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *Result) IsSuccess() bool {
	return r.Err == nil
}
