// Package tools defines the schema-validated tool surface shared by the MCP
// server, the REST API and the chat tool loop. Every tool takes a JSON object
// and returns a JSON object; inputs are validated against the declared schema
// before the tool runs.
package tools

import (
	"context"
)

// Permission names a capability a tool requires from its caller.
const (
	// PermAdmin gates tools that mutate the store (refresh, clear).
	PermAdmin = "admin:write"
)

// Descriptor declares the static interface of a tool.
// InputSchema is a JSON Schema (draft 2020-12).
type Descriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	InputSchema []byte   `json:"input_schema"`
	Permissions []string `json:"permissions,omitempty"`
}

// Tool is a callable unit with a schema-validated input.
type Tool interface {
	Describe() Descriptor
	// Invoke executes the tool. args conform to InputSchema when called
	// through Registry.SafeInvoke.
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Func adapts a descriptor and a function into a Tool.
type Func struct {
	Desc Descriptor
	Fn   func(ctx context.Context, args map[string]any) (map[string]any, error)
}

func (f Func) Describe() Descriptor { return f.Desc }

func (f Func) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return f.Fn(ctx, args)
}
