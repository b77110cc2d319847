package tools

import (
	"context"

	"github.com/google/generative-ai-go/genai"
)

// InvoiceRecord is one row in the billing system of record.
type InvoiceRecord struct {
	Status string
	Amount float64
	Date   string
}

// InvoiceTool looks up invoice details from the billing system.
type InvoiceTool struct {
	invoices map[string]InvoiceRecord
}

// NewInvoiceTool creates the tool over the given invoice dataset.
func NewInvoiceTool(invoices map[string]InvoiceRecord) *InvoiceTool {
	return &InvoiceTool{invoices: invoices}
}

// DefaultInvoices seeds the billing dataset used until a live billing
// integration is configured.
func DefaultInvoices() map[string]InvoiceRecord {
	return map[string]InvoiceRecord{
		"INV-2024-001": {Status: "PAID", Amount: 50.00, Date: "2024-01-15"},
		"INV-2024-002": {Status: "UNPAID", Amount: 120.50, Date: "2024-02-01"},
		"INV-99":       {Status: "OVERDUE", Amount: 999.00, Date: "2023-12-01"},
	}
}

func (t *InvoiceTool) Name() string { return "fetch_invoice" }

func (t *InvoiceTool) Description() string {
	return "Looks up invoice details from the billing system. Returns the invoice's payment status (PAID, UNPAID, OVERDUE), amount in USD and date, or an error field when the invoice does not exist. Use this when the customer asks about a specific invoice."
}

func (t *InvoiceTool) Parameters() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"invoice_id": {
				Type:        genai.TypeString,
				Description: "The invoice identifier, e.g. \"INV-2024-001\"",
			},
		},
		Required: []string{"invoice_id"},
	}
}

// Invoke returns the invoice row or the not-found shape.
func (t *InvoiceTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	invoiceID := stringArg(args, "invoice_id")
	record, ok := t.invoices[invoiceID]
	if !ok {
		return map[string]any{"error": "Invoice not found"}, nil
	}
	return map[string]any{
		"invoice_id": invoiceID,
		"status":     record.Status,
		"amount":     record.Amount,
		"date":       record.Date,
	}, nil
}
