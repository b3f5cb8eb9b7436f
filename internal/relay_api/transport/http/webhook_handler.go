package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	reconcilerapp "github.com/pawsline/relay/internal/reconciler/app"
	reconcilerdomain "github.com/pawsline/relay/internal/reconciler/domain"
)

// BookingEventProcessor is the slice of the booking processor the handler
// needs.
type BookingEventProcessor interface {
	ProcessConfirmed(ctx context.Context, ev reconcilerdomain.BookingConfirmedEvent) (*reconcilerapp.BookingResult, error)
	ProcessCancelled(ctx context.Context, ev reconcilerdomain.BookingCancelledEvent) error
}

// InboundProcessor is the slice of the inbound service the handler needs.
type InboundProcessor interface {
	Process(ctx context.Context, params reconcilerapp.InboundParams) (*reconcilerapp.InboundResult, error)
}

// WebhookHandler serves the booking system and SMS provider webhooks. Every
// endpoint is idempotent: redeliveries get the same success status as the
// first delivery.
type WebhookHandler struct {
	bookings BookingEventProcessor
	inbound  InboundProcessor
	logger   *slog.Logger
	validate *validator.Validate
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(bookings BookingEventProcessor, inbound InboundProcessor, logger *slog.Logger, validate *validator.Validate) *WebhookHandler {
	return &WebhookHandler{
		bookings: bookings,
		inbound:  inbound,
		logger:   logger.With("component", "webhook_handler"),
		validate: validate,
	}
}

// RegisterRoutes mounts the webhook endpoints.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/booking/confirmed", h.BookingConfirmed)
	r.Post("/webhooks/booking/cancelled", h.BookingCancelled)
	r.Post("/webhooks/sms/inbound", h.InboundSMS)
}

// BookingConfirmed reconciles a confirmed booking into a thread and window.
func (h *WebhookHandler) BookingConfirmed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ev reconcilerdomain.BookingConfirmedEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	result, err := h.bookings.ProcessConfirmed(ctx, ev)
	if err != nil {
		h.logger.ErrorContext(ctx, "booking confirmed webhook failed", "event_id", ev.EventID, "error", err)
		respondWithDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result.WindowCreated {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, result)
}

// BookingCancelled removes the booking's window.
func (h *WebhookHandler) BookingCancelled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ev reconcilerdomain.BookingCancelledEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.bookings.ProcessCancelled(ctx, ev); err != nil {
		h.logger.ErrorContext(ctx, "booking cancelled webhook failed", "event_id", ev.EventID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponseDTO{Status: "processed"})
}

// InboundSMS stores and forwards an inbound message. Redeliveries with a
// known provider SID are acknowledged with 200 and not re-forwarded.
func (h *WebhookHandler) InboundSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO InboundSMSRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	result, err := h.inbound.Process(ctx, reconcilerapp.InboundParams{
		From:               reqDTO.From,
		To:                 reqDTO.To,
		Body:               reqDTO.Body,
		ProviderMessageSID: reqDTO.ProviderMessageSID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "inbound webhook failed", "provider_sid", reqDTO.ProviderMessageSID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
