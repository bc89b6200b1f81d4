// Package openai adapts the OpenAI chat completions API, including function
// calling, to the provider-neutral llm contract.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	oa "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/synvya/nostrmarket/pkg/llm"
)

const defaultModel = "gpt-4o-mini"

type clientWrapper struct {
	client oa.Client
	model  string
}

func (c *clientWrapper) Name() string { return "openai" }

func (c *clientWrapper) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.GenerateResult, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}

	mm := make([]oa.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			mm = append(mm, oa.SystemMessage(m.Content))
		case llm.RoleAssistant:
			mm = append(mm, assistantParam(m))
		case llm.RoleTool:
			mm = append(mm, oa.ToolMessage(m.Content, m.ToolCallID))
		default:
			mm = append(mm, oa.UserMessage(m.Content))
		}
	}

	params := oa.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: mm,
	}
	if opts.Temperature != nil {
		params.Temperature = oa.Float(*opts.Temperature)
	}
	for _, td := range opts.Tools {
		var schema map[string]any
		if err := json.Unmarshal(td.InputSchema, &schema); err != nil {
			return llm.GenerateResult{}, fmt.Errorf("openai: tool %q schema: %w", td.Name, err)
		}
		params.Tools = append(params.Tools, oa.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        td.Name,
			Description: oa.String(td.Description),
			Parameters:  shared.FunctionParameters(schema),
		}))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.GenerateResult{}, err
	}
	res := llm.GenerateResult{Model: model}
	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message
		res.Text = msg.Content
		for _, tc := range msg.ToolCalls {
			args := map[string]any{}
			if tc.Function.Arguments != "" {
				// Malformed arguments surface as an empty arg set; the tool
				// layer's schema validation reports the real problem.
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			}
			res.ToolCalls = append(res.ToolCalls, llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			})
		}
	}
	res.PromptTokens = int(resp.Usage.PromptTokens)
	res.OutputTokens = int(resp.Usage.CompletionTokens)
	res.TotalTokens = int(resp.Usage.TotalTokens)
	return res, nil
}

// assistantParam rebuilds an assistant turn, including any tool calls it
// made, for replay in a follow-up request.
func assistantParam(m llm.Message) oa.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return oa.AssistantMessage(m.Content)
	}
	ap := oa.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		ap.Content.OfString = oa.String(m.Content)
	}
	for _, tc := range m.ToolCalls {
		args, err := json.Marshal(tc.Args)
		if err != nil {
			args = []byte("{}")
		}
		ap.ToolCalls = append(ap.ToolCalls, oa.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &oa.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: oa.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			},
		})
	}
	return oa.ChatCompletionMessageParamUnion{OfAssistant: &ap}
}

// Factory creates an OpenAI client. cfg keys: api_key, model.
func Factory(ctx context.Context, cfg map[string]any) (llm.LLM, error) { // nolint: revive
	_ = ctx
	apiKey := os.Getenv("OPENAI_API_KEY")
	if v, ok := cfg["api_key"].(string); ok && v != "" {
		apiKey = v
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key; set OPENAI_API_KEY or cfg.api_key")
	}
	model := defaultModel
	if v, ok := cfg["model"].(string); ok && v != "" {
		model = v
	}
	c := oa.NewClient(option.WithAPIKey(apiKey))
	return &clientWrapper{client: c, model: model}, nil
}

func init() {
	_ = llm.Register("openai", Factory)
}
