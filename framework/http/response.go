package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-arc/framework/container"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ContainerError reports a failed bean lookup:
//
//	{"message": "...", "error": "unsatisfied"}
//
// An inactive context (the server is shutting down) is a 503; everything
// else is a 500. Errors that do not come from the container are a plain
// ServerError.
func (res *Response) ContainerError(err error) {
	kind, status := classify(err)
	if kind == "" {
		res.ServerError()
		return
	}
	res.JSON(status, envelope{"message": err.Error(), "error": kind})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, container.ErrContextNotActive):
		return "context_not_active", http.StatusServiceUnavailable
	case errors.Is(err, container.ErrUnsatisfied):
		return "unsatisfied", http.StatusInternalServerError
	case errors.Is(err, container.ErrAmbiguous):
		return "ambiguous", http.StatusInternalServerError
	case errors.Is(err, container.ErrConstruction):
		return "construction", http.StatusInternalServerError
	case errors.Is(err, container.ErrUseAfterDestroy):
		return "use_after_destroy", http.StatusInternalServerError
	case errors.Is(err, container.ErrRegistration):
		return "registration", http.StatusInternalServerError
	}
	return "", 0
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
