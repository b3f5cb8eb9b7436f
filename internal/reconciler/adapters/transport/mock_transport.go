package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pawsline/relay/internal/reconciler/domain"
)

// MockTransport is a simulated provider for development and tests. It
// records every send and can be told to fail.
type MockTransport struct {
	logger *slog.Logger

	mu        sync.Mutex
	sent      []SentMessage
	failCode  string
	failMsg   string
	shouldErr bool
}

// SentMessage is one recorded send.
type SentMessage struct {
	To   string
	From string
	Body string
}

// NewMockTransport creates a MockTransport that accepts every send.
func NewMockTransport(logger *slog.Logger) *MockTransport {
	return &MockTransport{logger: logger.With("transport", "mock")}
}

// FailWith makes subsequent sends come back rejected with the given provider
// error until cleared with Accept.
func (t *MockTransport) FailWith(code, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shouldErr = true
	t.failCode = code
	t.failMsg = message
}

// Accept restores successful sends.
func (t *MockTransport) Accept() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.shouldErr = false
}

// Sent returns a copy of all recorded sends.
func (t *MockTransport) Sent() []SentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SentMessage, len(t.sent))
	copy(out, t.sent)
	return out
}

// Name implements MessageTransport.
func (t *MockTransport) Name() string { return "mock" }

// Send implements MessageTransport.
func (t *MockTransport) Send(ctx context.Context, to, from, body string) (*domain.SendResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shouldErr {
		t.logger.WarnContext(ctx, "mock transport rejecting send", "to", to, "code", t.failCode)
		return &domain.SendResult{
			Success:      false,
			ErrorCode:    t.failCode,
			ErrorMessage: t.failMsg,
		}, nil
	}

	t.sent = append(t.sent, SentMessage{To: to, From: from, Body: body})
	sid := "mock_" + uuid.NewString()
	t.logger.InfoContext(ctx, "mock transport accepted send", "to", to, "from", from, "sid", sid)
	return &domain.SendResult{Success: true, MessageSID: sid}, nil
}
