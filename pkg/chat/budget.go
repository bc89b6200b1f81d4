package chat

import (
	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/synvya/nostrmarket/pkg/llm"
)

// TokenEstimator estimates token usage of text content.
type TokenEstimator func(text string) int

// RuneEstimator is the fallback estimator when no encoding is available:
// roughly four runes per token.
func RuneEstimator(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return n/4 + 1
}

// NewTikTokenEstimator returns an estimator backed by tiktoken-go for the
// given model, or an error if the model has no known encoding.
func NewTikTokenEstimator(model string) (TokenEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}

// Budget trims a conversation to a token limit before each model round.
// The system turn and the latest user turn are always kept; the oldest
// remaining turns drop first. A tool loop can otherwise grow past the model
// context when searches return large result sets.
type Budget struct {
	estimate  TokenEstimator
	maxTokens int
}

// NewBudget builds a Budget for the model, falling back to RuneEstimator
// for models tiktoken does not know. maxTokens <= 0 disables trimming.
func NewBudget(model string, maxTokens int) *Budget {
	est, err := NewTikTokenEstimator(model)
	if err != nil {
		est = RuneEstimator
	}
	return &Budget{estimate: est, maxTokens: maxTokens}
}

// Fit returns the conversation trimmed to the budget. An assistant turn that
// made tool calls and the tool turns answering it are kept or dropped as one
// unit; providers reject a tool reply whose originating call is missing.
func (b *Budget) Fit(convo []llm.Message) []llm.Message {
	if b == nil || b.maxTokens <= 0 || len(convo) == 0 {
		return convo
	}
	cost := func(m llm.Message) int {
		n := b.estimate(m.Content)
		for _, tc := range m.ToolCalls {
			n += b.estimate(tc.Name) + 8
		}
		return n + 4
	}

	// Group each assistant-with-tool-calls turn with its tool replies;
	// every other turn stands alone.
	var groups [][]int
	for i := 0; i < len(convo); {
		g := []int{i}
		if convo[i].Role == llm.RoleAssistant && len(convo[i].ToolCalls) > 0 {
			for i+1 < len(convo) && convo[i+1].Role == llm.RoleTool {
				i++
				g = append(g, i)
			}
		}
		groups = append(groups, g)
		i++
	}
	groupCost := func(g []int) int {
		n := 0
		for _, i := range g {
			n += cost(convo[i])
		}
		return n
	}

	total := 0
	for _, g := range groups {
		total += groupCost(g)
	}
	if total <= b.maxTokens {
		return convo
	}

	keep := make([]bool, len(groups))
	// Pin the system turn and the latest user turn.
	if convo[0].Role == llm.RoleSystem {
		keep[0] = true
	}
	for gi := len(groups) - 1; gi >= 0; gi-- {
		if convo[groups[gi][0]].Role == llm.RoleUser {
			keep[gi] = true
			break
		}
	}

	budget := b.maxTokens
	for gi, g := range groups {
		if keep[gi] {
			budget -= groupCost(g)
		}
	}

	// Fill from the newest groups backwards.
	for gi := len(groups) - 1; gi >= 0; gi-- {
		if keep[gi] {
			continue
		}
		c := groupCost(groups[gi])
		if c > budget {
			continue
		}
		keep[gi] = true
		budget -= c
	}

	out := make([]llm.Message, 0, len(convo))
	for gi, g := range groups {
		if !keep[gi] {
			continue
		}
		for _, i := range g {
			out = append(out, convo[i])
		}
	}
	return out
}
