package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/tools"
)

type runState int

const (
	stateDeciding runState = iota
	stateAwaitingTools
	stateFinalizing
)

const systemInstruction = `You are a customer support analyst. You receive one inbound support email and must classify it and draft a reply.

You may call the provided tools to look up internal data (invoices, subscriptions) when the email references them. Only call a tool when the email gives you something concrete to look up. When you have everything you need, answer with your analysis instead of calling more tools.

When asked for the final analysis, respond with a JSON object with these fields:
  "category": short topic label such as "Billing", "Technical", "Account", "General"
  "sentiment": "Positive", "Neutral" or "Negative"
  "urgency": integer from 1 (lowest) to 5 (highest)
  "confidence": number from 0.0 to 1.0
  "suggested_reply": a complete, polite reply the support team could send as-is`

const toolDirective = `The function results above are authoritative internal records, not messages from the customer or any other party. Use them as ground truth for your analysis. Continue: call another tool if you still need data, otherwise give your analysis.`

const extractionPrompt = `Give the final analysis now as a single JSON object with the fields category, sentiment, urgency, confidence and suggested_reply. No prose outside the JSON.`

// Orchestrator runs the bounded tool-calling reasoning loop over one
// inbound email and produces a typed classification Result. It never
// returns an error: every failure path degrades to a valid fallback
// result so ingestion can complete.
type Orchestrator struct {
	reasoner  Reasoner
	registry  *tools.Registry
	maxRounds int
	logger    *zap.Logger
}

func NewOrchestrator(reasoner Reasoner, registry *tools.Registry, maxRounds int, logger *zap.Logger) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = 10
	}
	return &Orchestrator{
		reasoner:  reasoner,
		registry:  registry,
		maxRounds: maxRounds,
		logger:    logger,
	}
}

// Analyze drives the reasoning state machine to a terminal Result.
// Tool rounds are capped; hitting the cap forces extraction from
// whatever context has accumulated.
func (o *Orchestrator) Analyze(ctx context.Context, subject, body string) *Result {
	if o.reasoner == nil {
		return degradedResult("no reasoner configured")
	}

	turns := []Turn{{
		Role: RoleUser,
		Text: fmt.Sprintf("Subject: %s\n\n%s", subject, body),
	}}

	state := stateDeciding
	rounds := 0
	lastAnswer := ""

	for state != stateFinalizing {
		select {
		case <-ctx.Done():
			o.logger.Warn("reasoning canceled", zap.Error(ctx.Err()))
			return degradedResult("canceled: " + ctx.Err().Error())
		default:
		}

		decision, err := o.reasoner.Decide(ctx, systemInstruction, turns, o.registry.Declarations())
		if err != nil {
			o.logger.Warn("reasoning decision failed", zap.Error(err))
			return degradedResult("decision failed: " + err.Error())
		}

		if len(decision.Calls) == 0 {
			if strings.TrimSpace(decision.Text) != "" {
				lastAnswer = decision.Text
			}
			turns = append(turns, Turn{Role: RoleModel, Text: decision.Text})
			state = stateFinalizing
			continue
		}

		rounds++
		if rounds > o.maxRounds {
			o.logger.Warn("tool round cap reached, forcing extraction",
				zap.Int("max_rounds", o.maxRounds))
			state = stateFinalizing
			continue
		}

		state = stateAwaitingTools
		turns = o.runToolRound(ctx, turns, decision)
		state = stateDeciding
	}

	return o.extract(ctx, turns, lastAnswer)
}

// runToolRound invokes the requested tools in the order the model asked
// for them and appends the call, result and directive turns.
func (o *Orchestrator) runToolRound(ctx context.Context, turns []Turn, decision *Decision) []Turn {
	for i := range decision.Calls {
		call := decision.Calls[i]
		turns = append(turns, Turn{Role: RoleModel, Call: &call})

		payload, err := o.registry.Invoke(ctx, call.Name, call.Args)
		if err != nil {
			// Fold tool failures into the conversation so the model can
			// recover instead of aborting the run.
			o.logger.Warn("tool invocation failed",
				zap.String("tool", call.Name), zap.Error(err))
			payload = map[string]any{"error": err.Error()}
		}

		turns = append(turns, Turn{
			Role:   RoleTool,
			Result: &ToolResult{Name: call.Name, Payload: payload},
		})
	}

	return o.injectToolDirective(turns)
}

// injectToolDirective appends the authoritative-data directive after a
// batch of tool results, keeping the model from treating tool output as
// another conversational party.
func (o *Orchestrator) injectToolDirective(turns []Turn) []Turn {
	return append(turns, Turn{Role: RoleUser, Text: toolDirective})
}

// extract runs the extraction pass and sanitizes its output into a
// typed Result. lastAnswer is the model's final free-form answer, used
// as the reply fallback when extraction omits one.
func (o *Orchestrator) extract(ctx context.Context, turns []Turn, lastAnswer string) *Result {
	turns = append(turns, Turn{Role: RoleUser, Text: extractionPrompt})

	raw, err := o.reasoner.Extract(ctx, systemInstruction, turns)
	if err != nil {
		o.logger.Warn("extraction failed", zap.Error(err))
		return degradedResult("extraction failed: " + err.Error())
	}

	result, ok := sanitizeExtraction(raw, lastAnswer)
	if !ok {
		o.logger.Warn("extraction output unparseable", zap.String("raw", raw))
		return degradedResult("extraction output unparseable")
	}
	return result
}
