// Package gemini adapts the Gemini API, including function calling, to the
// provider-neutral llm contract.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	genai "google.golang.org/genai"

	"github.com/synvya/nostrmarket/pkg/llm"
)

const defaultModel = "gemini-2.5-flash-lite"

type clientWrapper struct {
	client *genai.Client
	model  string
}

func (c *clientWrapper) Name() string { return "gemini" }

func (c *clientWrapper) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.GenerateResult, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}

	config := &genai.GenerateContentConfig{}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*opts.Temperature))
	}
	if len(opts.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(opts.Tools))
		for _, td := range opts.Tools {
			schema, err := toSchema(td.InputSchema)
			if err != nil {
				return llm.GenerateResult{}, fmt.Errorf("gemini: tool %q schema: %w", td.Name, err)
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  schema,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case llm.RoleAssistant:
			parts := []*genai.Part{}
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: tc.Args}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case llm.RoleTool:
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"output": m.Content}
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{
				{FunctionResponse: &genai.FunctionResponse{Name: m.ToolCallID, Response: response}},
			}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	res, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return llm.GenerateResult{}, err
	}
	out := llm.GenerateResult{Text: res.Text(), Model: model}
	for _, fc := range res.FunctionCalls() {
		id := fc.ID
		if id == "" {
			// Gemini may omit call IDs; the tool name keys the response turn.
			id = fc.Name
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
	}
	if res.UsageMetadata != nil {
		out.PromptTokens = int(res.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(res.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int(res.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// toSchema converts a JSON Schema object into the Gemini schema type.
// Only the subset the tool descriptors use is mapped.
func toSchema(raw []byte) (*genai.Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return convertSchema(doc), nil
}

func convertSchema(doc map[string]any) *genai.Schema {
	s := &genai.Schema{}
	if t, ok := doc["type"].(string); ok {
		switch t {
		case "object":
			s.Type = genai.TypeObject
		case "string":
			s.Type = genai.TypeString
		case "integer":
			s.Type = genai.TypeInteger
		case "number":
			s.Type = genai.TypeNumber
		case "boolean":
			s.Type = genai.TypeBoolean
		case "array":
			s.Type = genai.TypeArray
		}
	}
	if d, ok := doc["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := doc["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = map[string]*genai.Schema{}
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = convertSchema(pm)
			}
		}
	}
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := doc["items"].(map[string]any); ok {
		s.Items = convertSchema(items)
	}
	return s
}

// Factory creates a Gemini client using GOOGLE_API_KEY by default.
// cfg keys: api_key, model.
func Factory(ctx context.Context, cfg map[string]any) (llm.LLM, error) { // nolint: revive
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing API key; set GOOGLE_API_KEY or cfg.api_key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model := defaultModel
	if v, ok := cfg["model"].(string); ok && v != "" {
		model = v
	}
	return &clientWrapper{client: client, model: model}, nil
}

func init() {
	_ = llm.Register("gemini", Factory)
}
