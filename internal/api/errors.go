package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/store"
)

// writeJSONError writes JSON error response
func writeJSONError(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying error message
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final APIError
func (eb *ErrorBuilder) Build() APIError {
	return APIError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger         *log.Logger
	securityLogger *SecurityLogger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger, securityLogger *SecurityLogger) *ErrorHandler {
	return &ErrorHandler{
		logger:         logger,
		securityLogger: securityLogger,
	}
}

// classify maps domain errors to a status and error type.
func classify(err error, defaultStatus int) (int, string, string) {
	switch {
	case errors.Is(err, session.ErrNoMission):
		return http.StatusNotFound, ErrTypeNoMission, "No active mission for this player. Start a mission first."
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrTypeServiceUnavailable, "Game store is unavailable. Try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrTypeTimeout, "Operation timed out"
	}
	return defaultStatus, ErrTypeInternal, err.Error()
}

// HandleError processes an error and writes appropriate HTTP response
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error, defaultStatus int) {
	requestID := middleware.GetReqID(r.Context())

	var apiErr APIError
	if errors.As(err, &apiErr) {
		eh.logError(r, apiErr, defaultStatus)
		eh.writeErrorResponse(w, defaultStatus, apiErr)
		return
	}

	status, errType, message := classify(err, defaultStatus)
	apiErr = NewError(errType, message).
		WithRequestID(requestID).
		WithContext("path", routePattern(r)).
		WithContext("method", r.Method).
		WithCause(err).
		Build()

	eh.logError(r, apiErr, status)
	eh.writeErrorResponse(w, status, apiErr)
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	requestID := middleware.GetReqID(r.Context())

	apiErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(requestID).
		WithContext("field", field).
		WithContext("path", routePattern(r)).
		WithContext("method", r.Method).
		Build()

	eh.securityLogger.LogSecurityEvent(
		requestID,
		"validation_failure",
		message,
		map[string]interface{}{
			"field": field,
			"path":  routePattern(r),
		},
		r.RemoteAddr,
	)

	eh.logError(r, apiErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, apiErr)
}

// HandleScriptError reports an autopilot script that failed to load or run
func (eh *ErrorHandler) HandleScriptError(w http.ResponseWriter, r *http.Request, turns int, err error) {
	requestID := middleware.GetReqID(r.Context())

	apiErr := NewError(ErrTypeScript, "Autopilot script failed").
		WithRequestID(requestID).
		WithContext("turns_completed", turns).
		WithContext("path", routePattern(r)).
		WithCause(err).
		Build()

	eh.logError(r, apiErr, http.StatusUnprocessableEntity)
	eh.writeErrorResponse(w, http.StatusUnprocessableEntity, apiErr)
}

// logError logs the error with appropriate level and context
func (eh *ErrorHandler) logError(r *http.Request, apiErr APIError, status int) {
	category := GetErrorCategory(apiErr.Type)

	logLevel := "ERROR"
	if category == CategoryValidation || category == CategoryGame {
		logLevel = "WARN"
	}

	logFields := map[string]interface{}{
		"status":    status,
		"remote_ip": r.RemoteAddr,
	}
	for key, value := range eh.securityLogger.sanitizeContext(apiErr.Context) {
		logFields[key] = value
	}

	eh.logger.Printf(
		"error_occurred level=%s type=%s category=%s status=%d request_id=%s path=%s message=%q context=%+v",
		logLevel, apiErr.Type, category, status, apiErr.RequestID, routePattern(r), apiErr.Message, logFields,
	)
}

// writeErrorResponse writes the error response as JSON
func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, apiErr APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Galactic-Version", Version)
	w.Header().Set("X-Error-Type", apiErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(apiErr.Type)))
	w.WriteHeader(status)

	if err := writeJSONError(w, apiErr); err != nil {
		eh.logger.Printf("error_response_write_failed error=%q", err)
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())

				eh.logger.Printf(
					"panic_recovered request_id=%s path=%s method=%s panic=%v",
					requestID, routePattern(r), r.Method, rvr,
				)

				apiErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("path", routePattern(r)).
					WithContext("method", r.Method).
					Build()

				eh.writeErrorResponse(w, http.StatusInternalServerError, apiErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
