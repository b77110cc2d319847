package agent

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldSource records whether a result field came from the model output
// or from a sanitization default.
type FieldSource string

const (
	FieldParsed    FieldSource = "parsed"
	FieldDefaulted FieldSource = "defaulted"
)

// FieldSources tags every sanitized field of a Result.
type FieldSources struct {
	Category       FieldSource
	Sentiment      FieldSource
	Urgency        FieldSource
	Confidence     FieldSource
	SuggestedReply FieldSource
}

// Result is the terminal output of one reasoning run.
type Result struct {
	Category       string
	Sentiment      string
	Urgency        int
	Confidence     float64
	SuggestedReply string
	// Reasoning holds the raw model output for audit.
	Reasoning string
	// Degraded marks results produced by the failure policy rather than
	// a completed reasoning run.
	Degraded bool
	Fields   FieldSources
}

const genericReply = "Thank you for contacting us. We received your request and it is under manual review. We will get back to you shortly."

// degradedResult is the failure-policy terminal result. It is always
// valid so a reasoning outage never aborts ingestion.
func degradedResult(reason string) *Result {
	return &Result{
		Category:       "Error",
		Sentiment:      "Neutral",
		Urgency:        1,
		Confidence:     0.0,
		SuggestedReply: genericReply,
		Reasoning:      reason,
		Degraded:       true,
		Fields: FieldSources{
			Category:       FieldDefaulted,
			Sentiment:      FieldDefaulted,
			Urgency:        FieldDefaulted,
			Confidence:     FieldDefaulted,
			SuggestedReply: FieldDefaulted,
		},
	}
}

// rawExtraction mirrors the extraction JSON loosely: urgency and
// confidence stay untyped because models return them as numbers or
// strings interchangeably.
type rawExtraction struct {
	Category       string `json:"category"`
	Sentiment      string `json:"sentiment"`
	Urgency        any    `json:"urgency"`
	Confidence     any    `json:"confidence"`
	SuggestedReply string `json:"suggested_reply"`
}

// sanitizeExtraction parses the raw extraction output into a typed
// Result, defaulting each field independently. fallbackReply is used
// when the output carries no suggested reply; when that is empty too,
// the generic acknowledgement is used.
func sanitizeExtraction(raw, fallbackReply string) (*Result, bool) {
	var parsed rawExtraction
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, false
	}

	result := &Result{Reasoning: raw}

	result.Category, result.Fields.Category = coerceString(parsed.Category, "Uncategorized")
	result.Sentiment, result.Fields.Sentiment = coerceString(parsed.Sentiment, "Neutral")
	result.Urgency, result.Fields.Urgency = coerceUrgency(parsed.Urgency)
	result.Confidence, result.Fields.Confidence = coerceConfidence(parsed.Confidence)

	reply := strings.TrimSpace(parsed.SuggestedReply)
	switch {
	case reply != "":
		result.SuggestedReply = reply
		result.Fields.SuggestedReply = FieldParsed
	case strings.TrimSpace(fallbackReply) != "":
		result.SuggestedReply = strings.TrimSpace(fallbackReply)
		result.Fields.SuggestedReply = FieldDefaulted
	default:
		result.SuggestedReply = genericReply
		result.Fields.SuggestedReply = FieldDefaulted
	}

	return result, true
}

func coerceString(value, fallback string) (string, FieldSource) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, FieldDefaulted
	}
	return value, FieldParsed
}

// coerceUrgency normalizes urgency to an integer on the 1-5 scale,
// defaulting to 1 when the value does not parse.
func coerceUrgency(value any) (int, FieldSource) {
	switch v := value.(type) {
	case float64:
		return clampUrgency(int(v)), FieldParsed
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 1, FieldDefaulted
		}
		return clampUrgency(parsed), FieldParsed
	default:
		return 1, FieldDefaulted
	}
}

// coerceConfidence normalizes confidence to a float in [0,1], defaulting
// to 0.0 when the value does not parse.
func coerceConfidence(value any) (float64, FieldSource) {
	switch v := value.(type) {
	case float64:
		return clampConfidence(v), FieldParsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0.0, FieldDefaulted
		}
		return clampConfidence(parsed), FieldParsed
	default:
		return 0.0, FieldDefaulted
	}
}

func clampUrgency(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripFences removes a markdown code fence wrapper some models put
// around JSON output.
func stripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
