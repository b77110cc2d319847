package agent

import (
	"testing"
)

func TestSanitizeExtraction_TypedFields(t *testing.T) {
	raw := `{"category":"Billing","sentiment":"Negative","urgency":3,"confidence":0.9,"suggested_reply":"We are on it."}`

	result, ok := sanitizeExtraction(raw, "")
	if !ok {
		t.Fatal("expected parse success")
	}
	if result.Category != "Billing" || result.Sentiment != "Negative" {
		t.Errorf("unexpected labels: %q %q", result.Category, result.Sentiment)
	}
	if result.Urgency != 3 {
		t.Errorf("urgency = %d, want 3", result.Urgency)
	}
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", result.Confidence)
	}
	if result.SuggestedReply != "We are on it." {
		t.Errorf("unexpected reply: %q", result.SuggestedReply)
	}
	if result.Fields.Urgency != FieldParsed || result.Fields.SuggestedReply != FieldParsed {
		t.Errorf("expected parsed field sources, got %+v", result.Fields)
	}
}

func TestSanitizeExtraction_UrgencyCoercion(t *testing.T) {
	cases := []struct {
		name       string
		urgency    string
		want       int
		wantSource FieldSource
	}{
		{"numeric string", `"3"`, 3, FieldParsed},
		{"word", `"high"`, 1, FieldDefaulted},
		{"float", `4.7`, 4, FieldParsed},
		{"below range", `0`, 1, FieldParsed},
		{"above range", `99`, 5, FieldParsed},
		{"missing", `null`, 1, FieldDefaulted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := `{"category":"General","sentiment":"Neutral","urgency":` + tc.urgency + `,"confidence":0.5,"suggested_reply":"ok"}`
			result, ok := sanitizeExtraction(raw, "")
			if !ok {
				t.Fatal("expected parse success")
			}
			if result.Urgency != tc.want {
				t.Errorf("urgency = %d, want %d", result.Urgency, tc.want)
			}
			if result.Fields.Urgency != tc.wantSource {
				t.Errorf("urgency source = %q, want %q", result.Fields.Urgency, tc.wantSource)
			}
		})
	}
}

func TestSanitizeExtraction_ConfidenceCoercion(t *testing.T) {
	cases := []struct {
		name       string
		confidence string
		want       float64
		wantSource FieldSource
	}{
		{"numeric string", `"0.75"`, 0.75, FieldParsed},
		{"garbage", `"abc"`, 0.0, FieldDefaulted},
		{"above range", `2.5`, 1.0, FieldParsed},
		{"negative", `-0.3`, 0.0, FieldParsed},
		{"missing", `null`, 0.0, FieldDefaulted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := `{"category":"General","sentiment":"Neutral","urgency":1,"confidence":` + tc.confidence + `,"suggested_reply":"ok"}`
			result, ok := sanitizeExtraction(raw, "")
			if !ok {
				t.Fatal("expected parse success")
			}
			if result.Confidence != tc.want {
				t.Errorf("confidence = %f, want %f", result.Confidence, tc.want)
			}
			if result.Fields.Confidence != tc.wantSource {
				t.Errorf("confidence source = %q, want %q", result.Fields.Confidence, tc.wantSource)
			}
		})
	}
}

func TestSanitizeExtraction_ReplyFallbacks(t *testing.T) {
	raw := `{"category":"General","sentiment":"Neutral","urgency":1,"confidence":0.5}`

	result, ok := sanitizeExtraction(raw, "here is my earlier answer")
	if !ok {
		t.Fatal("expected parse success")
	}
	if result.SuggestedReply != "here is my earlier answer" {
		t.Errorf("expected fallback reply, got %q", result.SuggestedReply)
	}
	if result.Fields.SuggestedReply != FieldDefaulted {
		t.Errorf("expected defaulted reply source")
	}

	result, ok = sanitizeExtraction(raw, "")
	if !ok {
		t.Fatal("expected parse success")
	}
	if result.SuggestedReply != genericReply {
		t.Errorf("expected generic reply, got %q", result.SuggestedReply)
	}
}

func TestSanitizeExtraction_MarkdownFences(t *testing.T) {
	raw := "```json\n{\"category\":\"Account\",\"sentiment\":\"Positive\",\"urgency\":2,\"confidence\":0.8,\"suggested_reply\":\"done\"}\n```"

	result, ok := sanitizeExtraction(raw, "")
	if !ok {
		t.Fatal("expected parse success after fence stripping")
	}
	if result.Category != "Account" {
		t.Errorf("category = %q", result.Category)
	}
}

func TestSanitizeExtraction_Unparseable(t *testing.T) {
	if _, ok := sanitizeExtraction("sorry, I cannot answer that", ""); ok {
		t.Fatal("expected parse failure for prose output")
	}
}

func TestDegradedResult(t *testing.T) {
	result := degradedResult("reasoner down")
	if !result.Degraded {
		t.Fatal("expected degraded flag")
	}
	if result.Category != "Error" || result.Urgency != 1 || result.Confidence != 0.0 {
		t.Errorf("unexpected degraded values: %+v", result)
	}
	if result.SuggestedReply == "" {
		t.Error("degraded result must carry a reply")
	}
	if result.Fields.Category != FieldDefaulted {
		t.Error("degraded fields must be marked defaulted")
	}
}
