package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/auth"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

// Error kinds raised by the auth endpoints
const (
	KindUserExists         catalog.Kind = "UserExists"
	KindInvalidCredentials catalog.Kind = "InvalidCredentials"
	KindPayloadTooLarge    catalog.Kind = "PayloadTooLarge"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure
type ErrorDetail struct {
	Kind       string        `json:"kind"`
	Message    string        `json:"message"`
	Fields     []FieldDetail `json:"fields,omitempty"`
	StoredRefs []string      `json:"stored_refs,omitempty"`
}

// FieldDetail names a text field that failed validation
type FieldDetail struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind catalog.Kind) int {
	switch kind {
	case catalog.KindInvalidFilePart, catalog.KindMissingRequiredFiles, catalog.KindMissingOwner,
		catalog.KindInvalidField, catalog.KindInvalidIdentifier:
		return http.StatusBadRequest
	case catalog.KindNotFound:
		return http.StatusNotFound
	case KindUserExists:
		return http.StatusConflict
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func kindOf(err error) catalog.Kind {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return KindUserExists
	case errors.Is(err, auth.ErrInvalidCredentials):
		return KindInvalidCredentials
	default:
		return catalog.KindOf(err)
	}
}

// writeError renders err as an ErrorResponse. Internal failures are logged
// and reported without their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := kindOf(err)
	writeErrorKind(w, r, kind, err)
}

func writeErrorKind(w http.ResponseWriter, r *http.Request, kind catalog.Kind, err error) {
	status := statusFor(kind)
	detail := ErrorDetail{Kind: string(kind), Message: err.Error()}

	var fes catalog.FieldErrors
	if errors.As(err, &fes) {
		for _, fe := range fes {
			detail.Fields = append(detail.Fields, FieldDetail{Field: fe.Field, Rule: fe.Rule, Param: fe.Param})
		}
	}

	switch kind {
	case catalog.KindPartialUploadFailure:
		var upErr *catalog.UploadError
		if errors.As(err, &upErr) {
			detail.StoredRefs = upErr.StoredRefs
		}
		detail.Message = "upload aborted before all files were stored"
	case catalog.KindStoreUnavailable:
		detail.Message = "asset store unavailable"
	case catalog.KindInternal:
		detail.Message = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "kind", string(kind), "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: detail})
}
