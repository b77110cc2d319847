// Package mail holds the external mail collaborators: a Gmail fetch
// client keyed by the push notification's history cursor, and an SMTP
// reply sender.
package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/spec-kit/support-agent/internal/config"
)

// InboundMessage is the normalized content of one fetched mail.
type InboundMessage struct {
	ID        string
	Sender    string
	Receiver  string
	Subject   string
	Body      string
	Timestamp time.Time
}

// GmailClient fetches message content from the Gmail REST API using the
// history cursor carried by a push notification.
type GmailClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewGmailClient builds a client from a stored authorized-user token.
// Token refresh is handled by the setup tooling that wrote the file.
func NewGmailClient(ctx context.Context, cfg config.GmailConfig, logger *zap.Logger) (*GmailClient, error) {
	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read gmail token %s: %w", cfg.TokenFile, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("parse gmail token: %w", err)
	}

	return &GmailClient{
		httpClient: oauth2.NewClient(ctx, oauth2.StaticTokenSource(&token)),
		baseURL:    cfg.APIBaseURL,
		logger:     logger,
	}, nil
}

// newGmailClientWithHTTP is used by tests to substitute the transport.
func newGmailClientWithHTTP(httpClient *http.Client, baseURL string, logger *zap.Logger) *GmailClient {
	return &GmailClient{httpClient: httpClient, baseURL: baseURL, logger: logger}
}

type historyResponse struct {
	History []struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	} `json:"history"`
}

type messageListResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type messagePayload struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePayload `json:"parts"`
}

type messageResponse struct {
	ID           string         `json:"id"`
	InternalDate string         `json:"internalDate"`
	Payload      messagePayload `json:"payload"`
}

// FetchMessage resolves the history cursor to the newest message and
// returns its normalized content. A nil result without error means the
// cursor described no retrievable mail (deletion, label change, stale id).
func (c *GmailClient) FetchMessage(ctx context.Context, historyID string) (*InboundMessage, error) {
	messageID, err := c.latestMessageID(ctx, historyID)
	if err != nil {
		return nil, err
	}
	if messageID == "" {
		return nil, nil
	}

	var msg messageResponse
	endpoint := fmt.Sprintf("%s/users/me/messages/%s?format=full", c.baseURL, url.PathEscape(messageID))
	if err := c.getJSON(ctx, endpoint, &msg); err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	if msg.ID == "" {
		// 404: the message vanished between notification and fetch.
		return nil, nil
	}

	return normalizeMessage(&msg), nil
}

// latestMessageID asks the history endpoint what changed at the cursor,
// falling back to the newest inbox message when the cursor is too old for
// Gmail to expand.
func (c *GmailClient) latestMessageID(ctx context.Context, historyID string) (string, error) {
	var history historyResponse
	endpoint := fmt.Sprintf("%s/users/me/history?startHistoryId=%s", c.baseURL, url.QueryEscape(historyID))
	if err := c.getJSON(ctx, endpoint, &history); err != nil {
		return "", fmt.Errorf("list history %s: %w", historyID, err)
	}

	for _, change := range history.History {
		if len(change.Messages) > 0 {
			return change.Messages[0].ID, nil
		}
	}

	c.logger.Debug("no history records for cursor, fetching latest message",
		zap.String("history_id", historyID))

	var list messageListResponse
	endpoint = fmt.Sprintf("%s/users/me/messages?maxResults=1", c.baseURL)
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return "", nil
	}
	return list.Messages[0].ID, nil
}

func (c *GmailClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail API returned HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func normalizeMessage(msg *messageResponse) *InboundMessage {
	out := &InboundMessage{
		ID:      msg.ID,
		Subject: "No Subject",
		Body:    "(no text content)",
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "From":
			out.Sender = h.Value
		case "To":
			out.Receiver = h.Value
		}
	}

	if body, ok := extractTextBody(&msg.Payload); ok {
		out.Body = body
	}

	if millis, err := parseMillis(msg.InternalDate); err == nil {
		out.Timestamp = millis
	} else {
		out.Timestamp = time.Now()
	}

	return out
}

// extractTextBody decodes the base64url body, preferring the text/plain
// part of a multipart payload.
func extractTextBody(payload *messagePayload) (string, bool) {
	if payload.Body.Data != "" && len(payload.Parts) == 0 {
		return decodeBody(payload.Body.Data)
	}
	for i := range payload.Parts {
		part := &payload.Parts[i]
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
	}
	// nested multipart/alternative
	for i := range payload.Parts {
		if body, ok := extractTextBody(&payload.Parts[i]); ok {
			return body, true
		}
	}
	return "", false
}

func decodeBody(data string) (string, bool) {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return "", false
		}
	}
	return string(decoded), true
}

func parseMillis(internalDate string) (time.Time, error) {
	var millis int64
	if _, err := fmt.Sscanf(internalDate, "%d", &millis); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis), nil
}
