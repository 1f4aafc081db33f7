// Package respond writes JSON responses and maps engine errors to HTTP
// status codes for every handler package.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/middleware"
	"github.com/koneque/marketplace-escrow/pkg/models"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Status maps an error from the engine to an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInsufficientAllowance),
		errors.Is(err, models.ErrCodeExpired),
		errors.Is(err, models.ErrCodeExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyLocked),
		errors.Is(err, models.ErrAlreadyReleased),
		errors.Is(err, models.ErrAlreadyInactive),
		errors.Is(err, models.ErrAlreadyReferred),
		errors.Is(err, models.ErrAlreadyExists),
		errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrLedgerPending):
		return http.StatusAccepted
	case errors.Is(err, models.ErrLedgerRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an api.Error body. Internal errors are logged and
// their detail is not returned.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	body := api.Error{Error: err.Error(), Kind: models.Kind(err)}
	var pending *models.PendingError
	if errors.As(err, &pending) && pending.TxHash != "" {
		body.TxHash = &pending.TxHash
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "internal error"
	}
	JSON(w, status, body)
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrInvalidInput, err)
	}
	return nil
}

// Actor returns the authenticated caller or writes a 401.
func Actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		JSON(w, http.StatusUnauthorized, api.Error{Error: "authentication required", Kind: "Unauthenticated"})
		return "", false
	}
	return actor, true
}

// ParamError is the chi wrapper's handler for malformed path and query
// parameters.
func ParamError(w http.ResponseWriter, r *http.Request, err error) {
	JSON(w, http.StatusBadRequest, api.Error{Error: err.Error(), Kind: "InvalidInput"})
}

// Transition writes the outcome of a state-changing call. A transaction
// returned together with a pending or rejected ledger error has already
// moved; its payouts are left to reconciliation, so the client gets 202.
func Transition[T any](w http.ResponseWriter, r *http.Request, tx *T, err error, ok int) {
	if err != nil {
		if tx != nil && (errors.Is(err, models.ErrLedgerPending) || errors.Is(err, models.ErrLedgerRejected)) {
			JSON(w, http.StatusAccepted, tx)
			return
		}
		Error(w, r, err)
		return
	}
	JSON(w, ok, tx)
}
