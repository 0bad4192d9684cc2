// Package http provides the JSON API server and its handlers.
//
// This file implements the builder for the response envelope every endpoint
// except the recap returns.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/ai"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// APIResponse is the envelope clients unwrap.
type APIResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// ResponseBuilder provides a fluent API for building envelope responses.
type ResponseBuilder struct {
	statusCode int
	message    string
	data       any
	headers    map[string]string
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.message = msg
	return b
}

func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.data = data
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write encodes the envelope. Success is derived from the status code.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	writeJSON(w, b.statusCode, APIResponse{
		Success:    b.statusCode < http.StatusBadRequest,
		StatusCode: b.statusCode,
		Message:    b.message,
		Data:       b.data,
	})
}

// OK writes a 200 envelope.
func OK(w http.ResponseWriter, message string, data any) {
	NewResponse().Message(message).Data(data).Write(w)
}

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, message string, data any) {
	NewResponse().Status(http.StatusCreated).Message(message).Data(data).Write(w)
}

// ErrorResponse writes a failure envelope.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	NewResponse().Status(statusCode).Message(message).Write(w)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the envelope. Internal errors
// are logged and their text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path, log.ErrorTypeInternal, nil)
		msg = "An unexpected error occurred."
	}
	ErrorResponse(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
