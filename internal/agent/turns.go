// Package agent implements the tool-calling reasoning loop that
// classifies a ticket and drafts a reply.
package agent

import (
	"context"

	"github.com/google/generative-ai-go/genai"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the payload one tool returned.
type ToolResult struct {
	Name    string
	Payload map[string]any
}

// Turn is one entry in the accumulated conversation history.
type Turn struct {
	Role   Role
	Text   string
	Call   *ToolCall
	Result *ToolResult
}

// Decision is one reasoning step's output: either answer text, or one or
// more tool calls to execute before deciding again.
type Decision struct {
	Text  string
	Calls []ToolCall
}

// Reasoner is the external structured-completion capability the
// orchestrator consults. Implementations must be safe for concurrent use
// across tickets.
type Reasoner interface {
	// Decide consults the capability with the turn history and available
	// tool declarations.
	Decide(ctx context.Context, system string, turns []Turn, decls []*genai.FunctionDeclaration) (*Decision, error)
	// Extract requests the final structured classification as raw JSON
	// text over the accumulated history.
	Extract(ctx context.Context, system string, turns []Turn) (string, error)
}
