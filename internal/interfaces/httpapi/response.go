package httpapi

import (
	"context"
	"net/http"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/carolinespringscc/cricket-agent/internal/usecase"
)

const errorDomain = "cricket-agent"

// Error responses follow the Google JSON style guide envelope. Success
// bodies are written as-is: the ask, sync and webhook payloads are part of
// the public contract and are not wrapped.
type errorEnvelope struct {
	APIVersion string        `json:"apiVersion"`
	Error      *errorPayload `json:"error"`
}

type errorPayload struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Errors  []errorDetail `json:"errors,omitempty"`
}

type errorDetail struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(body)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ctx, span := startSpan(ctx, "httpapi.writeError")
	defer span.End()

	status, statusName, reason := mapError(err)
	writeJSON(ctx, w, status, errorEnvelope{
		APIVersion: "2.0",
		Error: &errorPayload{
			Code:    status,
			Message: statusName,
			Errors: []errorDetail{{
				Domain:  errorDomain,
				Reason:  reason,
				Message: err.Error(),
			}},
		},
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	ctx, span := startSpan(ctx, "httpapi.writeInternalError")
	defer span.End()

	writeJSON(ctx, w, http.StatusInternalServerError, errorEnvelope{
		APIVersion: "2.0",
		Error: &errorPayload{
			Code:    http.StatusInternalServerError,
			Message: "INTERNAL",
			Errors: []errorDetail{{
				Domain:  errorDomain,
				Reason:  "internalError",
				Message: "internal server error",
			}},
		},
	})
}

func mapError(err error) (int, string, string) {
	switch {
	case crerr.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_ARGUMENT", "invalidInput"
	case crerr.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "notFound"
	case crerr.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "unauthorized"
	case crerr.Is(err, usecase.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "dependencyUnavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internalError"
	}
}
