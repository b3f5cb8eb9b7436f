package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pawsline/relay/internal/reconciler/domain"
)

// HTTPTransport submits messages to an SMS provider's REST API.
type HTTPTransport struct {
	logger     *slog.Logger
	httpClient *http.Client
	name       string
	baseURL    string
	apiToken   string
}

// NewHTTPTransport creates an HTTPTransport. A nil httpClient gets a default
// with a 10 second timeout.
func NewHTTPTransport(logger *slog.Logger, name, baseURL, apiToken string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTransport{
		logger:     logger.With("transport", name),
		httpClient: httpClient,
		name:       name,
		baseURL:    baseURL,
		apiToken:   apiToken,
	}
}

type sendRequestBody struct {
	To   string `json:"to"`
	From string `json:"from"`
	Body string `json:"body"`
}

type sendResponseBody struct {
	MessageSID   string `json:"message_sid"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// Name implements MessageTransport.
func (t *HTTPTransport) Name() string { return t.name }

// Send implements MessageTransport. Non-2xx provider responses are reported
// as rejected sends, not transport errors, so the caller records the attempt.
func (t *HTTPTransport) Send(ctx context.Context, to, from, body string) (*domain.SendResult, error) {
	payload, err := json.Marshal(sendRequestBody{To: to, From: from, Body: body})
	if err != nil {
		return nil, fmt.Errorf("marshalling send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending to provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}

	var parsed sendResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding provider response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.WarnContext(ctx, "provider rejected send",
			"status", resp.StatusCode, "error_code", parsed.ErrorCode, "to", to)
		code := parsed.ErrorCode
		if code == "" {
			code = fmt.Sprintf("http_%d", resp.StatusCode)
		}
		return &domain.SendResult{
			Success:      false,
			ErrorCode:    code,
			ErrorMessage: parsed.ErrorMessage,
		}, nil
	}

	t.logger.InfoContext(ctx, "provider accepted send", "sid", parsed.MessageSID, "to", to)
	return &domain.SendResult{Success: true, MessageSID: parsed.MessageSID}, nil
}
