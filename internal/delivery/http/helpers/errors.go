package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"ignitia/internal/domain"
)

// WriteDomainError maps err to a status by its domain.ErrorKind and writes it. Errors that are
// not business-rule failures are logged and answered with a generic 500.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		return
	}
	status, code := statusFor(de.Kind)
	writeAPIError(w, status, &APIError{Code: code, Rule: de.Code, Message: de.Message})
}

func statusFor(kind domain.ErrorKind) (int, string) {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest, ErrCodeBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case domain.KindConflict:
		return http.StatusConflict, ErrCodeConflict
	case domain.KindPermission:
		return http.StatusForbidden, ErrCodeForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, ErrCodeUnauthorized
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
