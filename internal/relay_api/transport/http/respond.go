package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	pooldomain "github.com/pawsline/relay/internal/numberpool/domain"
	reconcilerdomain "github.com/pawsline/relay/internal/reconciler/domain"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("failed to write JSON response", "error", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponseDTO{Error: message})
}

// respondWithDomainError maps domain failures onto the API's typed statuses:
// 400 validation, 404 not found, 409 pool exhausted, 502 provider rejection.
func respondWithDomainError(w http.ResponseWriter, err error) {
	var validationErr *routingdomain.ValidationError
	if errors.As(err, &validationErr) {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponseDTO{
			Error: validationErr.Message,
			Field: validationErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, routingdomain.ErrThreadNotFound),
		errors.Is(err, routingdomain.ErrWindowNotFound),
		errors.Is(err, routingdomain.ErrOverrideNotFound),
		errors.Is(err, pooldomain.ErrNumberNotFound),
		errors.Is(err, pooldomain.ErrSettingsNotFound),
		errors.Is(err, reconcilerdomain.ErrMessageNotFound),
		errors.Is(err, reconcilerdomain.ErrClientNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case pooldomain.IsPoolExhausted(err):
		respondWithError(w, http.StatusConflict, err.Error())
	case reconcilerdomain.IsProviderSendError(err):
		respondWithError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, reconcilerdomain.ErrMaxAttemptsReached):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
