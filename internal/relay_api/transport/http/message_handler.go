package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	reconcilerapp "github.com/pawsline/relay/internal/reconciler/app"
	reconcilerdomain "github.com/pawsline/relay/internal/reconciler/domain"
)

// MessageSender is the slice of the sender service the handler needs.
type MessageSender interface {
	Send(ctx context.Context, params reconcilerapp.SendParams) (*reconcilerdomain.OutboundMessage, error)
	Retry(ctx context.Context, messageID uuid.UUID) (*reconcilerdomain.OutboundMessage, error)
	Attempts(ctx context.Context, messageID uuid.UUID) ([]reconcilerdomain.DeliveryAttempt, error)
}

// MessageHandler serves outbound sending and the delivery attempt log.
type MessageHandler struct {
	sender   MessageSender
	logger   *slog.Logger
	validate *validator.Validate
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(sender MessageSender, logger *slog.Logger, validate *validator.Validate) *MessageHandler {
	return &MessageHandler{
		sender:   sender,
		logger:   logger.With("component", "message_handler"),
		validate: validate,
	}
}

// RegisterRoutes mounts the message endpoints.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.SendMessage)
	r.Post("/messages/{messageID}/retry", h.RetryMessage)
	r.Get("/messages/{messageID}/attempts", h.ListAttempts)
}

// SendMessage sends an outbound message on a thread.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO SendMessageRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	msg, err := h.sender.Send(ctx, reconcilerapp.SendParams{
		ThreadID: uuid.MustParse(reqDTO.ThreadID),
		Body:     reqDTO.Body,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "send failed", "thread_id", reqDTO.ThreadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// RetryMessage makes another delivery attempt for a failed message.
func (h *MessageHandler) RetryMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	msg, err := h.sender.Retry(ctx, messageID)
	if err != nil {
		h.logger.ErrorContext(ctx, "retry failed", "message_id", messageID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msg)
}

// ListAttempts returns the message's delivery attempt log.
func (h *MessageHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	attempts, err := h.sender.Attempts(r.Context(), messageID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}
