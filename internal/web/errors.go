package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler error goes through respondError, which:
//  1. Picks the HTTP status from the error's identity (statusFor)
//  2. Maps the error to a user message via core.MapError
//  3. Logs the technical error with the request ID
//  4. Writes JSON, an HTMX fragment, or plain text depending on the client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/logging"
	"github.com/JonMunkholm/csvstandard/internal/schema"
	"github.com/JonMunkholm/csvstandard/internal/web/templates"
)

var (
	errInvalidRequest    = errors.New("invalid request")
	errSheetsUnavailable = errors.New("sheets api: not configured")
)

// invalidRequest reports a malformed body or parameter.
func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, fmt.Sprintf(format, args...))
}

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Action  string              `json:"action,omitempty"`
	Code    string              `json:"code"`
	Details []schema.FieldError `json:"details,omitempty"`
}

func newErrorResponse(err error) ErrorResponse {
	msg := core.MapError(err)
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}

	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		resp.Details = ve.Errors
	}
	return resp
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var parseErr *core.ParseError

	switch {
	case errors.Is(err, core.ErrTemplateNotFound), errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSlugConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, errSheetsUnavailable):
		return http.StatusServiceUnavailable
	case core.IsPrecondition(err),
		errors.Is(err, core.ErrValidationFailed),
		errors.Is(err, core.ErrNotStandardized),
		errors.Is(err, core.ErrNoDestination):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidTemplate),
		errors.Is(err, errInvalidRequest),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrEncoding),
		errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case strings.Contains(err.Error(), "sheets api"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-friendly response in the format
// the client asked for.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := newErrorResponse(err)

	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", resp.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, resp, status)
	case wantsJSON(r):
		writeJSONStatus(w, status, resp)
	default:
		http.Error(w, resp.Message+" ("+resp.Code+")", status)
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, resp ErrorResponse, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(resp.Message, resp.Action, resp.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response. API routes always do.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// decodeBody reads a JSON body into dst and checks its validate tags.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return invalidRequest("decode body: %v", err)
	}
	return checkRequest(dst)
}
