package chat

import (
	"strings"
	"testing"

	"github.com/synvya/nostrmarket/pkg/llm"
)

func TestRuneEstimator(t *testing.T) {
	if RuneEstimator("") != 0 {
		t.Fatal("empty text must cost nothing")
	}
	if got := RuneEstimator("abcdefgh"); got != 3 {
		t.Fatalf("estimate=%d want 3", got)
	}
}

func TestBudgetFitKeepsSystemAndLatestUser(t *testing.T) {
	b := &Budget{estimate: RuneEstimator, maxTokens: 60}
	big := strings.Repeat("x", 400)
	convo := []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "old question"},
		{Role: llm.RoleAssistant, Content: big},
		{Role: llm.RoleTool, Content: big, ToolCallID: "c1"},
		{Role: llm.RoleUser, Content: "latest question"},
	}
	got := b.Fit(convo)
	if got[0].Role != llm.RoleSystem {
		t.Fatalf("system turn dropped: %+v", got)
	}
	last := got[len(got)-1]
	if last.Role != llm.RoleUser || last.Content != "latest question" {
		t.Fatalf("latest user turn dropped: %+v", got)
	}
	for _, m := range got {
		if m.Content == big {
			t.Fatal("oversized turn survived trimming")
		}
	}
}

func TestBudgetFitDropsToolPairWhole(t *testing.T) {
	b := &Budget{estimate: RuneEstimator, maxTokens: 60}
	big := strings.Repeat("x", 400)
	convo := []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "old question"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "search_profiles"}}},
		{Role: llm.RoleTool, Content: big, ToolCallID: "c1"},
		{Role: llm.RoleUser, Content: "latest question"},
	}
	got := b.Fit(convo)
	// An oversized tool reply takes its assistant call down with it; a tool
	// turn must never survive the turn that requested it.
	seen := map[string]bool{}
	for _, m := range got {
		for _, tc := range m.ToolCalls {
			seen[tc.ID] = true
		}
		if m.Role == llm.RoleTool && !seen[m.ToolCallID] {
			t.Fatalf("orphan tool turn %q: %+v", m.ToolCallID, got)
		}
		if m.ToolCallID == "c1" {
			t.Fatalf("oversized tool pair kept: %+v", got)
		}
	}
	last := got[len(got)-1]
	if last.Role != llm.RoleUser || last.Content != "latest question" {
		t.Fatalf("latest user turn dropped: %+v", got)
	}
}

func TestBudgetFitKeepsToolPairWhole(t *testing.T) {
	b := &Budget{estimate: RuneEstimator, maxTokens: 60}
	big := strings.Repeat("x", 400)
	convo := []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: big},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "search_profiles"}}},
		{Role: llm.RoleTool, Content: "found 1", ToolCallID: "c1"},
		{Role: llm.RoleUser, Content: "latest question"},
	}
	got := b.Fit(convo)
	var sawCall, sawReply bool
	for _, m := range got {
		if m.Role == llm.RoleAssistant && len(m.ToolCalls) == 1 {
			sawCall = true
		}
		if m.Role == llm.RoleTool && m.ToolCallID == "c1" {
			sawReply = true
		}
		if m.Content == big {
			t.Fatal("oversized turn survived trimming")
		}
	}
	if !sawCall || !sawReply {
		t.Fatalf("tool pair split: call=%v reply=%v in %+v", sawCall, sawReply, got)
	}
}

func TestBudgetFitNoTrimUnderLimit(t *testing.T) {
	b := &Budget{estimate: RuneEstimator, maxTokens: 1000}
	convo := []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "hi"},
	}
	got := b.Fit(convo)
	if len(got) != 2 {
		t.Fatalf("len=%d want untouched conversation", len(got))
	}
}

func TestBudgetDisabled(t *testing.T) {
	var b *Budget
	convo := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	if got := b.Fit(convo); len(got) != 1 {
		t.Fatal("nil budget must be a no-op")
	}
	b2 := NewBudget("definitely-not-a-model", 0)
	if got := b2.Fit(convo); len(got) != 1 {
		t.Fatal("zero budget must be a no-op")
	}
}
