package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/api/dto"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/service"
)

type fakeGateway struct {
	outcome   service.Outcome
	historyID string
	calls     int
}

func (g *fakeGateway) Process(ctx context.Context, historyID string) service.Outcome {
	g.calls++
	g.historyID = historyID
	return g.outcome
}

func newTestApp(gateway *fakeGateway, metrics *observability.Metrics) *fiber.App {
	app := fiber.New()
	handler := NewWebhookHandler(gateway, metrics, zap.NewNop())
	app.Post("/webhook/email", handler.HandleEmail)
	return app
}

func post(t *testing.T, app *fiber.App, body []byte) (int, dto.IngestResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook/email", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var parsed dto.IngestResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return resp.StatusCode, parsed
}

func envelope(t *testing.T, data any) []byte {
	t.Helper()
	inner, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(dto.PushEnvelope{
		Message: &dto.PushMessage{
			Data:      base64.StdEncoding.EncodeToString(inner),
			MessageID: "pm-1",
		},
		Subscription: "projects/test/subscriptions/mail",
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestHandleEmail_Processed(t *testing.T) {
	gateway := &fakeGateway{outcome: service.Outcome{Status: service.StatusProcessed, TicketID: "ticket-1"}}
	app := newTestApp(gateway, observability.NewMetrics())

	status, resp := post(t, app, envelope(t, map[string]any{
		"emailAddress": "support@acme.test",
		"historyId":    987654,
	}))
	if status != fiber.StatusOK {
		t.Fatalf("http status = %d, want 200", status)
	}
	if resp.Status != service.StatusProcessed || resp.TicketID != "ticket-1" {
		t.Errorf("response = %+v", resp)
	}
	if gateway.historyID != "987654" {
		t.Errorf("history id = %q, want 987654", gateway.historyID)
	}
}

func TestHandleEmail_HistoryIDAsString(t *testing.T) {
	gateway := &fakeGateway{outcome: service.Outcome{Status: service.StatusProcessed, TicketID: "ticket-2"}}
	app := newTestApp(gateway, nil)

	status, _ := post(t, app, envelope(t, map[string]any{
		"emailAddress": "support@acme.test",
		"historyId":    "42",
	}))
	if status != fiber.StatusOK {
		t.Fatalf("http status = %d, want 200", status)
	}
	if gateway.historyID != "42" {
		t.Errorf("history id = %q, want 42", gateway.historyID)
	}
}

func TestHandleEmail_MissingMessage(t *testing.T) {
	gateway := &fakeGateway{}
	app := newTestApp(gateway, nil)

	status, resp := post(t, app, []byte(`{"subscription":"s"}`))
	if status != fiber.StatusOK {
		t.Fatalf("http status = %d, want 200", status)
	}
	if resp.Status != statusIgnoredNoMessage {
		t.Errorf("status = %q, want %q", resp.Status, statusIgnoredNoMessage)
	}
	if gateway.calls != 0 {
		t.Error("gateway must not run without a message")
	}
}

func TestHandleEmail_MissingHistoryID(t *testing.T) {
	gateway := &fakeGateway{}
	app := newTestApp(gateway, nil)

	status, resp := post(t, app, envelope(t, map[string]any{"emailAddress": "support@acme.test"}))
	if status != fiber.StatusOK {
		t.Fatalf("http status = %d, want 200", status)
	}
	if resp.Status != statusIgnoredNoHistoryID {
		t.Errorf("status = %q, want %q", resp.Status, statusIgnoredNoHistoryID)
	}
	if gateway.calls != 0 {
		t.Error("gateway must not run without a history id")
	}
}

func TestHandleEmail_BadBase64(t *testing.T) {
	gateway := &fakeGateway{}
	app := newTestApp(gateway, nil)

	body, _ := json.Marshal(dto.PushEnvelope{
		Message: &dto.PushMessage{Data: "!!not-base64!!", MessageID: "pm-2"},
	})
	status, resp := post(t, app, body)
	if status != fiber.StatusOK {
		t.Fatalf("bad payloads must still return 200, got %d", status)
	}
	if resp.Status != service.StatusError {
		t.Errorf("status = %q, want %q", resp.Status, service.StatusError)
	}
}

func TestHandleEmail_BadInnerJSON(t *testing.T) {
	gateway := &fakeGateway{}
	app := newTestApp(gateway, nil)

	body, _ := json.Marshal(dto.PushEnvelope{
		Message: &dto.PushMessage{
			Data:      base64.StdEncoding.EncodeToString([]byte("not json")),
			MessageID: "pm-3",
		},
	})
	status, resp := post(t, app, body)
	if status != fiber.StatusOK {
		t.Fatalf("http status = %d, want 200", status)
	}
	if resp.Status != service.StatusError {
		t.Errorf("status = %q, want %q", resp.Status, service.StatusError)
	}
}

func TestHandleEmail_RecordsOutcomeMetric(t *testing.T) {
	metrics := observability.NewMetrics()
	gateway := &fakeGateway{outcome: service.Outcome{Status: service.StatusIgnoredDuplicate}}
	app := newTestApp(gateway, metrics)

	post(t, app, envelope(t, map[string]any{"emailAddress": "a", "historyId": 1}))

	if metrics.IngestOutcomeCount(service.StatusIgnoredDuplicate) != 1 {
		t.Error("outcome metric not recorded")
	}
}
