// Package chat runs the LLM tool loop behind the /api/chat endpoint: the
// model is offered the marketplace tools, its tool calls are executed against
// the registry, and the results are fed back until it produces a final text.
package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/llm"
	"github.com/synvya/nostrmarket/pkg/tools"
)

const (
	maxRounds       = 5
	temperaturePlan = 0.2
	temperatureFina = 0.7

	systemPrompt = `You MUST call the search tools before answering any query about businesses, places, products, or services.
If a search returns zero results, broaden or adjust parameters and try again once. Only after two failed searches may you apologize.
Always deduplicate duplicates (prefer environment="production").`

	exhaustedReply = "Sorry, I couldn't complete the request after multiple tool calls."
)

// searchKeywords mark a user message that should trigger a search even when
// the model answered without calling a tool on the first round.
var searchKeywords = []string{"find", "search", "coffee", "near", "restaurant", "shop", "business", "in "}

// TraceEntry is one step of the last tool loop, kept for the debug endpoint.
type TraceEntry map[string]any

// Service drives the chat tool loop over one model and one tool registry.
type Service struct {
	model    llm.LLM
	registry *tools.Registry
	allowed  map[string]bool
	budget   *Budget

	mu        sync.Mutex
	lastTrace []TraceEntry
}

// NewService wires a model to a tool registry. The chat surface never gets
// admin tools, so the allowed set stays empty.
func NewService(model llm.LLM, registry *tools.Registry, budget *Budget) *Service {
	return &Service{model: model, registry: registry, allowed: map[string]bool{}, budget: budget}
}

// LastToolTrace returns the trace of the most recent Chat call.
func (s *Service) LastToolTrace() []TraceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TraceEntry, len(s.lastTrace))
	copy(out, s.lastTrace)
	return out
}

// Chat runs the tool loop and returns the model's final text. Planning
// rounds run cold; only the last permitted round warms up for the final
// answer.
func (s *Service) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if s.model == nil {
		return "", errmodel.Uninitialized("chat model not configured")
	}
	convo := make([]llm.Message, 0, len(messages)+1)
	if len(messages) == 0 || messages[0].Role != llm.RoleSystem {
		convo = append(convo, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	}
	convo = append(convo, messages...)

	defs := s.toolDefs()
	s.resetTrace()

	for round := 0; round < maxRounds; round++ {
		temp := temperaturePlan
		if round == maxRounds-1 {
			temp = temperatureFina
		}

		if s.budget != nil {
			convo = s.budget.Fit(convo)
		}

		res, err := s.model.Generate(ctx, convo, llm.Options{Temperature: &temp, Tools: defs})
		if err != nil {
			return "", errmodel.Model("chat_failed", "model generation failed", map[string]any{"round": round}, err)
		}
		s.trace(TraceEntry{"round": round, "text": res.Text, "tool_calls": len(res.ToolCalls)})

		if len(res.ToolCalls) > 0 {
			convo = append(convo, llm.Message{Role: llm.RoleAssistant, Content: res.Text, ToolCalls: res.ToolCalls})
			for _, tc := range res.ToolCalls {
				convo = append(convo, s.runTool(ctx, tc))
			}
			continue
		}

		// No tool call. On the first round, a searchy query still gets one
		// forced search before the model may answer.
		if round == 0 {
			if q, ok := forcedQuery(convo); ok {
				forced := llm.ToolCall{ID: "forced-1", Name: "search_profiles", Args: map[string]any{"query": q, "limit": 10}}
				convo = append(convo, llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{forced}})
				convo = append(convo, s.runTool(ctx, forced))
				s.trace(TraceEntry{"forced_tool": forced.Name, "query": q})
				continue
			}
		}

		s.trace(TraceEntry{"final": res.Text})
		return res.Text, nil
	}
	return exhaustedReply, nil
}

// runTool executes one tool call and wraps the outcome as a tool turn.
// Tool failures are reported back to the model, not surfaced to the caller.
func (s *Service) runTool(ctx context.Context, tc llm.ToolCall) llm.Message {
	out, err := s.registry.SafeInvoke(ctx, tc.Name, tc.Args, s.allowed)
	if err != nil {
		jww.WARN.Printf("chat tool %s failed: %v", tc.Name, err)
		out = map[string]any{"success": false, "error": errmodel.From(err).Message}
	} else if profiles, ok := out["profiles"].([]any); ok {
		deduped := DeduplicateProfiles(profiles)
		out["profiles"] = deduped
		out["count"] = len(deduped)
	}
	s.trace(TraceEntry{"tool": tc.Name, "args": tc.Args, "success": err == nil})

	body, err := json.Marshal(out)
	if err != nil {
		body = []byte(`{"success":false,"error":"unencodable tool result"}`)
	}
	return llm.Message{Role: llm.RoleTool, ToolCallID: tc.ID, Content: string(body)}
}

func (s *Service) toolDefs() []llm.ToolDef {
	ds := s.registry.Descriptors()
	defs := make([]llm.ToolDef, 0, len(ds))
	for _, d := range ds {
		// Admin tools stay off the model's menu entirely.
		if len(d.Permissions) > 0 {
			continue
		}
		defs = append(defs, llm.ToolDef{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	return defs
}

// forcedQuery returns the latest user text when it looks like a search.
func forcedQuery(convo []llm.Message) (string, bool) {
	for i := len(convo) - 1; i >= 0; i-- {
		if convo[i].Role != llm.RoleUser {
			continue
		}
		text := strings.ToLower(convo[i].Content)
		for _, kw := range searchKeywords {
			if strings.Contains(text, kw) {
				return text, true
			}
		}
		return "", false
	}
	return "", false
}

// DeduplicateProfiles collapses profiles that share a display_name, name or
// website, preferring environment "production", then anything that is not
// "demo". First occurrence order is kept.
func DeduplicateProfiles(profiles []any) []any {
	type group struct {
		production any
		other      any
		demo       any
		first      any
	}
	order := []string{}
	groups := map[string]*group{}

	str := func(m map[string]any, key string) string {
		v, _ := m[key].(string)
		return strings.ToLower(strings.TrimSpace(v))
	}

	for _, item := range profiles {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key := str(m, "display_name")
		if key == "" {
			key = str(m, "name")
		}
		if key == "" {
			key = str(m, "website")
		}
		if key == "" {
			key = str(m, "pubkey")
		}
		g, exists := groups[key]
		if !exists {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if g.first == nil {
			g.first = item
		}
		switch m["environment"] {
		case "production":
			if g.production == nil {
				g.production = item
			}
		case "demo":
			if g.demo == nil {
				g.demo = item
			}
		default:
			if g.other == nil {
				g.other = item
			}
		}
	}

	out := make([]any, 0, len(order))
	for _, key := range order {
		g := groups[key]
		switch {
		case g.production != nil:
			out = append(out, g.production)
		case g.other != nil:
			out = append(out, g.other)
		case g.demo != nil:
			out = append(out, g.demo)
		default:
			out = append(out, g.first)
		}
	}
	return out
}

func (s *Service) resetTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTrace = nil
}

func (s *Service) trace(e TraceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTrace = append(s.lastTrace, e)
}
