package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/tools"
)

// scriptedReasoner replays canned decisions in order, then extracts.
type scriptedReasoner struct {
	decisions  []*Decision
	decideErr  error
	extractOut string
	extractErr error

	decideCalls  int
	extractCalls int
	// lastTurns captures the conversation handed to Extract.
	lastTurns []Turn
}

func (r *scriptedReasoner) Decide(ctx context.Context, system string, turns []Turn, decls []*genai.FunctionDeclaration) (*Decision, error) {
	r.decideCalls++
	if r.decideErr != nil {
		return nil, r.decideErr
	}
	idx := r.decideCalls - 1
	if idx >= len(r.decisions) {
		return &Decision{Text: "final answer"}, nil
	}
	return r.decisions[idx], nil
}

func (r *scriptedReasoner) Extract(ctx context.Context, system string, turns []Turn) (string, error) {
	r.extractCalls++
	r.lastTurns = turns
	if r.extractErr != nil {
		return "", r.extractErr
	}
	return r.extractOut, nil
}

type echoTool struct {
	name    string
	invoked []map[string]any
}

func (t *echoTool) Name() string              { return t.name }
func (t *echoTool) Description() string       { return "echoes arguments" }
func (t *echoTool) Parameters() *genai.Schema { return &genai.Schema{Type: genai.TypeObject} }
func (t *echoTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	t.invoked = append(t.invoked, args)
	return map[string]any{"echo": args}, nil
}

func newTestOrchestrator(r Reasoner, reg *tools.Registry, maxRounds int) *Orchestrator {
	return NewOrchestrator(r, reg, maxRounds, zap.NewNop())
}

func TestAnalyze_DirectAnswer(t *testing.T) {
	reasoner := &scriptedReasoner{
		decisions:  []*Decision{{Text: "this looks like a billing question"}},
		extractOut: `{"category":"Billing","sentiment":"Neutral","urgency":2,"confidence":0.8,"suggested_reply":"We checked your invoice."}`,
	}
	o := newTestOrchestrator(reasoner, tools.NewRegistry(), 10)

	result := o.Analyze(context.Background(), "Invoice question", "Where is my invoice?")
	if result.Degraded {
		t.Fatal("unexpected degraded result")
	}
	if result.Category != "Billing" {
		t.Errorf("category = %q", result.Category)
	}
	if reasoner.decideCalls != 1 {
		t.Errorf("decide calls = %d, want 1", reasoner.decideCalls)
	}
	if reasoner.extractCalls != 1 {
		t.Errorf("extract calls = %d, want 1", reasoner.extractCalls)
	}
}

func TestAnalyze_ToolRoundThenAnswer(t *testing.T) {
	tool := &echoTool{name: "fetch_invoice"}
	registry := tools.NewRegistry()
	registry.Register(tool)

	reasoner := &scriptedReasoner{
		decisions: []*Decision{
			{Calls: []ToolCall{{Name: "fetch_invoice", Args: map[string]any{"invoice_id": "INV-2024-001"}}}},
			{Text: "invoice is paid"},
		},
		extractOut: `{"category":"Billing","sentiment":"Positive","urgency":1,"confidence":0.95,"suggested_reply":"Your invoice INV-2024-001 is paid."}`,
	}
	o := newTestOrchestrator(reasoner, registry, 10)

	result := o.Analyze(context.Background(), "Invoice", "Is INV-2024-001 paid?")
	if result.Degraded {
		t.Fatal("unexpected degraded result")
	}
	if len(tool.invoked) != 1 {
		t.Fatalf("tool invoked %d times, want 1", len(tool.invoked))
	}
	if tool.invoked[0]["invoice_id"] != "INV-2024-001" {
		t.Errorf("unexpected tool args: %v", tool.invoked[0])
	}

	// The directive turn must follow the tool result in the transcript.
	var sawResult, sawDirective bool
	for _, turn := range reasoner.lastTurns {
		if turn.Result != nil {
			sawResult = true
		}
		if sawResult && turn.Role == RoleUser && strings.Contains(turn.Text, "authoritative") {
			sawDirective = true
		}
	}
	if !sawDirective {
		t.Error("expected directive turn after tool results")
	}
}

func TestAnalyze_MultipleCallsInvokedInOrder(t *testing.T) {
	var order []string
	registry := tools.NewRegistry()
	for _, name := range []string{"fetch_invoice", "fetch_subscription"} {
		name := name
		registry.Register(&recordingTool{name: name, order: &order})
	}

	reasoner := &scriptedReasoner{
		decisions: []*Decision{
			{Calls: []ToolCall{
				{Name: "fetch_subscription", Args: map[string]any{"email": "a@b.c"}},
				{Name: "fetch_invoice", Args: map[string]any{"invoice_id": "INV-99"}},
			}},
			{Text: "done"},
		},
		extractOut: `{"category":"Billing","sentiment":"Neutral","urgency":2,"confidence":0.7,"suggested_reply":"ok"}`,
	}
	o := newTestOrchestrator(reasoner, registry, 10)
	o.Analyze(context.Background(), "s", "b")

	if len(order) != 2 || order[0] != "fetch_subscription" || order[1] != "fetch_invoice" {
		t.Errorf("tools invoked out of request order: %v", order)
	}
}

type recordingTool struct {
	name  string
	order *[]string
}

func (t *recordingTool) Name() string              { return t.name }
func (t *recordingTool) Description() string       { return "records invocation order" }
func (t *recordingTool) Parameters() *genai.Schema { return &genai.Schema{Type: genai.TypeObject} }
func (t *recordingTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	*t.order = append(*t.order, t.name)
	return map[string]any{"ok": true}, nil
}

func TestAnalyze_RoundCapForcesExtraction(t *testing.T) {
	tool := &echoTool{name: "fetch_invoice"}
	registry := tools.NewRegistry()
	registry.Register(tool)

	// Always ask for another tool call; the cap must break the loop.
	looping := make([]*Decision, 20)
	for i := range looping {
		looping[i] = &Decision{Calls: []ToolCall{{Name: "fetch_invoice", Args: map[string]any{"invoice_id": "INV-99"}}}}
	}
	reasoner := &scriptedReasoner{
		decisions:  looping,
		extractOut: `{"category":"Billing","sentiment":"Neutral","urgency":2,"confidence":0.4,"suggested_reply":"partial answer"}`,
	}
	o := newTestOrchestrator(reasoner, registry, 3)

	result := o.Analyze(context.Background(), "s", "b")
	if result.Degraded {
		t.Fatal("cap must force extraction, not degrade")
	}
	if len(tool.invoked) != 3 {
		t.Errorf("tool invoked %d times, want 3", len(tool.invoked))
	}
	if reasoner.extractCalls != 1 {
		t.Errorf("extract calls = %d, want 1", reasoner.extractCalls)
	}
}

func TestAnalyze_UnknownToolFoldedIntoResult(t *testing.T) {
	reasoner := &scriptedReasoner{
		decisions: []*Decision{
			{Calls: []ToolCall{{Name: "no_such_tool", Args: map[string]any{}}}},
			{Text: "recovered"},
		},
		extractOut: `{"category":"General","sentiment":"Neutral","urgency":1,"confidence":0.3,"suggested_reply":"ok"}`,
	}
	o := newTestOrchestrator(reasoner, tools.NewRegistry(), 10)

	result := o.Analyze(context.Background(), "s", "b")
	if result.Degraded {
		t.Fatal("tool errors must not degrade the run")
	}

	var foundErrPayload bool
	for _, turn := range reasoner.lastTurns {
		if turn.Result != nil {
			if _, ok := turn.Result.Payload["error"]; ok {
				foundErrPayload = true
			}
		}
	}
	if !foundErrPayload {
		t.Error("expected tool error folded into a result payload")
	}
}

func TestAnalyze_DecideErrorDegrades(t *testing.T) {
	reasoner := &scriptedReasoner{decideErr: errors.New("upstream 500")}
	o := newTestOrchestrator(reasoner, tools.NewRegistry(), 10)

	result := o.Analyze(context.Background(), "s", "b")
	if !result.Degraded {
		t.Fatal("expected degraded result")
	}
	if result.Category != "Error" || result.Urgency != 1 {
		t.Errorf("unexpected degraded result: %+v", result)
	}
}

func TestAnalyze_ExtractErrorDegrades(t *testing.T) {
	reasoner := &scriptedReasoner{
		decisions:  []*Decision{{Text: "answer"}},
		extractErr: errors.New("timeout"),
	}
	o := newTestOrchestrator(reasoner, tools.NewRegistry(), 10)

	if result := o.Analyze(context.Background(), "s", "b"); !result.Degraded {
		t.Fatal("expected degraded result")
	}
}

func TestAnalyze_NilReasonerDegrades(t *testing.T) {
	o := newTestOrchestrator(nil, tools.NewRegistry(), 10)
	if result := o.Analyze(context.Background(), "s", "b"); !result.Degraded {
		t.Fatal("expected degraded result without a reasoner")
	}
}
