// Package llm defines the provider-neutral chat contract used by the chat
// service, including function/tool calling. Providers register themselves by
// name; the service resolves one from configuration.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolDef declares a callable tool to the model. InputSchema is a JSON
// Schema object describing the arguments.
type ToolDef struct {
	Name        string
	Description string
	InputSchema []byte
}

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message represents one chat turn. Assistant turns may carry tool calls;
// tool turns answer one call by ID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// Options control a single generation.
type Options struct {
	Model       string
	Temperature *float64
	Tools       []ToolDef
}

// GenerateResult contains the model's output: text, any requested tool
// calls, and token usage if the provider reports it.
type GenerateResult struct {
	Text         string
	ToolCalls    []ToolCall
	PromptTokens int
	OutputTokens int
	TotalTokens  int
	Model        string
}

// LLM is a chat generation provider.
type LLM interface {
	Name() string
	Generate(ctx context.Context, messages []Message, opts Options) (GenerateResult, error)
}

// Factory constructs an LLM from provider-specific config.
// Common cfg keys: api_key, model.
type Factory func(ctx context.Context, cfg map[string]any) (LLM, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers an LLM factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("llm: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("llm: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("llm: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Providers lists registered provider names.
func Providers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	return out
}
