package agent

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestBuildContents_RolesFollowTurnAuthors(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Text: "Subject: hi\n\nbody"},
		{Role: RoleModel, Call: &ToolCall{Name: "fetch_invoice", Args: map[string]any{"invoice_id": "INV-99"}}},
		{Role: RoleTool, Result: &ToolResult{Name: "fetch_invoice", Payload: map[string]any{"status": "OVERDUE"}}},
		{Role: RoleUser, Text: "directive"},
		{Role: RoleModel, Text: "the invoice is overdue"},
		{Role: RoleUser, Text: "extract now"},
	}

	contents := buildContents(turns)
	wantRoles := []string{"user", "model", "function", "user", "model", "user"}
	if len(contents) != len(wantRoles) {
		t.Fatalf("contents = %d, want %d", len(contents), len(wantRoles))
	}
	for i, want := range wantRoles {
		if contents[i].Role != want {
			t.Errorf("content[%d].Role = %q, want %q", i, contents[i].Role, want)
		}
	}

	if _, ok := contents[1].Parts[0].(genai.FunctionCall); !ok {
		t.Error("function call must be a model-role FunctionCall part")
	}
	if _, ok := contents[2].Parts[0].(genai.FunctionResponse); !ok {
		t.Error("tool result must be a function-role FunctionResponse part")
	}
}

func TestBuildContents_MergesAdjacentSameRole(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Text: "hello"},
		{Role: RoleModel, Call: &ToolCall{Name: "fetch_invoice", Args: map[string]any{}}},
		{Role: RoleModel, Call: &ToolCall{Name: "fetch_subscription", Args: map[string]any{}}},
		{Role: RoleTool, Result: &ToolResult{Name: "fetch_invoice", Payload: map[string]any{}}},
		{Role: RoleTool, Result: &ToolResult{Name: "fetch_subscription", Payload: map[string]any{}}},
		{Role: RoleUser, Text: "directive"},
	}

	contents := buildContents(turns)
	if len(contents) != 4 {
		t.Fatalf("contents = %d, want 4 (user, model, function, user)", len(contents))
	}
	if len(contents[1].Parts) != 2 {
		t.Errorf("model content parts = %d, want both calls merged", len(contents[1].Parts))
	}
	if len(contents[2].Parts) != 2 {
		t.Errorf("function content parts = %d, want both results merged", len(contents[2].Parts))
	}
	if contents[3].Role != "user" {
		t.Errorf("final role = %q, want user so the session can submit it", contents[3].Role)
	}
}
