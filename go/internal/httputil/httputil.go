// Package httputil holds the JSON plumbing shared by the draft room's HTTP
// handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft"
	"github.com/rs/zerolog/log"
)

// HeaderUserID carries the authenticated user id set by the upstream proxy.
const HeaderUserID = "X-User-ID"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func WriteError(w http.ResponseWriter, status int, msg string, details string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// WriteDomainError maps err to a status code and writes it.
func WriteDomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		WriteError(w, status, "internal error", err.Error())
		return
	}
	WriteError(w, status, Message(err), err.Error())
}

// StatusFor maps the draft room's errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, draft.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, draft.ErrNotYourTurn),
		errors.Is(err, draft.ErrNotCommissioner),
		errors.Is(err, draft.ErrNotTeamOwner):
		return http.StatusForbidden
	case errors.Is(err, draft.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, draft.ErrDraftNotActive),
		errors.Is(err, draft.ErrStaleState),
		errors.Is(err, draft.ErrPlayerAlreadyDrafted):
		return http.StatusConflict
	case errors.Is(err, draft.ErrInvalidPlayer),
		errors.Is(err, draft.ErrInvalidDraftState),
		errors.Is(err, draft.ErrNoAvailablePlayer),
		errors.Is(err, draft.ErrAutoPickDisabled):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Message is the short public text for a domain error.
func Message(err error) string {
	for _, known := range []error{
		draft.ErrInvalidRequest,
		draft.ErrNotYourTurn,
		draft.ErrNotCommissioner,
		draft.ErrNotTeamOwner,
		draft.ErrNotFound,
		draft.ErrDraftNotActive,
		draft.ErrStaleState,
		draft.ErrPlayerAlreadyDrafted,
		draft.ErrInvalidPlayer,
		draft.ErrInvalidDraftState,
		draft.ErrNoAvailablePlayer,
		draft.ErrAutoPickDisabled,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}

// Decode reads a JSON body into v and runs struct validation on it.
func Decode(r *http.Request, validate *validator.Validate, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", draft.ErrInvalidRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", draft.ErrInvalidRequest, err)
	}
	return nil
}

// ActingUser returns the user id of the caller, or uuid.Nil when absent.
func ActingUser(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad %s header", draft.ErrInvalidRequest, HeaderUserID)
	}
	return id, nil
}

// ParseUUID parses a path or body identifier.
func ParseUUID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", draft.ErrInvalidRequest, name, raw)
	}
	return id, nil
}
