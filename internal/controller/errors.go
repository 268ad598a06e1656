package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/pkg/rest"
	"github.com/lulubrolive/server/pkg/validator"
	"github.com/lulubrolive/server/pkg/wsrouter"
)

const (
	codeValidation     = "VALIDATION_ERROR"
	codeNotFound       = "NOT_FOUND"
	codeUnauthorized   = "UNAUTHORIZED"
	codeConflict       = "CONFLICT"
	codeStore          = "STORE_ERROR"
	codeInvalidMessage = "INVALID_MESSAGE"
	codeInternal       = "INTERNAL_ERROR"
)

var (
	ErrMissingSession = errors.New("session was not provided")
	ErrMalformedBody  = errors.New("malformed request body")
)

type errorBody struct {
	Code    string                      `json:"code"`
	Message string                      `json:"message"`
	Fields  []validator.ValidationError `json:"fields,omitempty"`
}

// classifyError maps an error onto an HTTP status and a stable error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, ErrMissingSession):
		return http.StatusForbidden, codeUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, codeConflict
	case domain.IsStoreError(err):
		return http.StatusBadGateway, codeStore
	case errors.Is(err, wsrouter.ErrUnknownMessageType), errors.Is(err, wsrouter.ErrInvalidPayload):
		return http.StatusBadRequest, codeInvalidMessage
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func newErrorBody(err error) errorBody {
	_, code := classifyError(err)

	message := err.Error()
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		message = storeErr.Error()
	}

	return errorBody{Code: code, Message: message}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classifyError(err)
	if status >= http.StatusInternalServerError {
		c.logger.WarnContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "status", status, "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": newErrorBody(err)})
}

// readJSON decodes the body into dst, answering 400 when it is malformed.
func (c controller) readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.writeError(w, r, fmt.Errorf("%w: %s", ErrMalformedBody, err.Error()))
		return false
	}

	return true
}

func (c controller) writeValidationErrors(w http.ResponseWriter, r *http.Request, errs []validator.ValidationError) {
	c.logger.InfoContext(r.Context(), "validation failed", "errors", errs)
	rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": errorBody{
		Code:    codeValidation,
		Message: "request validation failed",
		Fields:  errs,
	}})
}
