package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/apperr"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/scoring"
)

// ActorHeader names the operator on whose behalf a request writes.
const ActorHeader = "X-Actor"

var ErrInvalidBody = errors.New("invalid request body")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps an error kind to the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidBody),
		errors.Is(err, apperr.ErrValidation),
		errors.Is(err, scoring.ErrInvalidScore):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return nil
}

func parseMonth(raw string) (evaluation.MonthKey, error) {
	return evaluation.ParseMonthKey(strings.TrimSpace(raw))
}

// requestContext tags the request context with the X-Actor header.
func requestContext(r *http.Request) *http.Request {
	actor := r.Header.Get(ActorHeader)
	if actor == "" {
		return r
	}
	return r.WithContext(services.WithActor(r.Context(), actor))
}
