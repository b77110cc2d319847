package agent

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
)

// GeminiReasoner implements Reasoner on a Gemini model. A fresh
// GenerativeModel is built per call so concurrent runs never share
// mutable model state.
type GeminiReasoner struct {
	client    *genai.Client
	modelName string
	maxTokens int32
}

func NewGeminiReasoner(client *genai.Client, modelName string, maxTokens int) *GeminiReasoner {
	return &GeminiReasoner{
		client:    client,
		modelName: modelName,
		maxTokens: int32(maxTokens),
	}
}

func (r *GeminiReasoner) newModel(system string) *genai.GenerativeModel {
	model := r.client.GenerativeModel(r.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	if r.maxTokens > 0 {
		model.SetMaxOutputTokens(r.maxTokens)
	}
	return model
}

// Decide asks the model for its next step given the conversation so
// far, with tool declarations attached.
func (r *GeminiReasoner) Decide(ctx context.Context, system string, turns []Turn, decls []*genai.FunctionDeclaration) (*Decision, error) {
	model := r.newModel(system)
	if len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := r.send(ctx, model, turns)
	if err != nil {
		return nil, err
	}
	return parseDecision(resp)
}

// Extract asks the model for the final JSON analysis with no tools
// attached, constraining the response to JSON.
func (r *GeminiReasoner) Extract(ctx context.Context, system string, turns []Turn) (string, error) {
	model := r.newModel(system)
	model.ResponseMIMEType = "application/json"

	resp, err := r.send(ctx, model, turns)
	if err != nil {
		return "", err
	}

	decision, err := parseDecision(resp)
	if err != nil {
		return "", err
	}
	return decision.Text, nil
}

// send replays the conversation as role-tagged history and submits the
// final turn. Function calls must sit in model-role content and tool
// results in function-role content, or the API rejects the request.
func (r *GeminiReasoner) send(ctx context.Context, model *genai.GenerativeModel, turns []Turn) (*genai.GenerateContentResponse, error) {
	contents := buildContents(turns)
	if len(contents) == 0 {
		return nil, errors.New("empty conversation")
	}

	last := contents[len(contents)-1]
	session := model.StartChat()
	session.History = contents[:len(contents)-1]
	return session.SendMessage(ctx, last.Parts...)
}

const roleFunction = "function"

// buildContents maps turns onto role-tagged contents, merging adjacent
// turns with the same role into one content.
func buildContents(turns []Turn) []*genai.Content {
	var contents []*genai.Content
	for _, turn := range turns {
		role, part := turnContent(turn)
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, part)
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{part},
		})
	}
	return contents
}

func turnContent(turn Turn) (string, genai.Part) {
	switch {
	case turn.Call != nil:
		return string(RoleModel), genai.FunctionCall{
			Name: turn.Call.Name,
			Args: turn.Call.Args,
		}
	case turn.Result != nil:
		return roleFunction, genai.FunctionResponse{
			Name:     turn.Result.Name,
			Response: turn.Result.Payload,
		}
	default:
		return string(turn.Role), genai.Text(turn.Text)
	}
}

func parseDecision(resp *genai.GenerateContentResponse) (*Decision, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty model response")
	}

	decision := &Decision{}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			decision.Text += string(p)
		case genai.FunctionCall:
			decision.Calls = append(decision.Calls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	return decision, nil
}
