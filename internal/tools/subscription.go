package tools

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// SubscriptionRecord is one row in the subscription management system.
type SubscriptionRecord struct {
	Plan        string
	Status      string
	RenewalDate string
}

// SubscriptionTool looks up a customer's subscription by email.
type SubscriptionTool struct {
	// byEmailFragment maps a lowercase address fragment to a record.
	byEmailFragment map[string]SubscriptionRecord
}

// NewSubscriptionTool creates the tool over the given dataset.
func NewSubscriptionTool(byEmailFragment map[string]SubscriptionRecord) *SubscriptionTool {
	return &SubscriptionTool{byEmailFragment: byEmailFragment}
}

// DefaultSubscriptions seeds the subscription dataset.
func DefaultSubscriptions() map[string]SubscriptionRecord {
	return map[string]SubscriptionRecord{
		"manthan": {Plan: "Pro", Status: "active", RenewalDate: "2024-03-01"},
		"starter": {Plan: "Starter", Status: "canceled", RenewalDate: "2023-01-01"},
	}
}

func (t *SubscriptionTool) Name() string { return "fetch_subscription" }

func (t *SubscriptionTool) Description() string {
	return "Looks up subscription details from the subscription management system by customer email. Returns plan name, status (active, canceled, expired) and next renewal date, or an error field when no subscription exists. Use this when the customer asks about their subscription, plan or renewal."
}

func (t *SubscriptionTool) Parameters() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"email": {
				Type:        genai.TypeString,
				Description: "The customer's email address",
			},
		},
		Required: []string{"email"},
	}
}

// Invoke returns the subscription row or the not-found shape.
func (t *SubscriptionTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	email := strings.ToLower(stringArg(args, "email"))
	for fragment, record := range t.byEmailFragment {
		if strings.Contains(email, fragment) {
			return map[string]any{
				"plan":         record.Plan,
				"status":       record.Status,
				"renewal_date": record.RenewalDate,
			}, nil
		}
	}
	return map[string]any{"error": "No active subscription found"}, nil
}
