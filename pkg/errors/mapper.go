package errors

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Mapper maps domain errors to HTTP status codes for the status endpoint
type Mapper struct {
	logger zerolog.Logger
}

// NewMapper creates a new error mapper
func NewMapper(logger zerolog.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// MapErrorToHTTP maps an error to HTTP status code and message
func (m *Mapper) MapErrorToHTTP(err error) (int, string) {
	if err == nil {
		return fasthttp.StatusOK, ""
	}

	var (
		validationErr  *ValidationError
		unauthorized   *UnauthorizedError
		permissionErr  *PermissionError
		notFoundErr    *NotFoundError
		conflictErr    *ConflictError
		expiredErr     *ExpiredError
		rateLimitErr   *RateLimitError
		unavailableErr *ServiceUnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		return fasthttp.StatusBadRequest, validationErr.Error()
	case errors.As(err, &unauthorized):
		return fasthttp.StatusUnauthorized, unauthorized.Error()
	case errors.As(err, &permissionErr):
		return fasthttp.StatusForbidden, permissionErr.Error()
	case errors.As(err, &notFoundErr):
		return fasthttp.StatusNotFound, notFoundErr.Error()
	case errors.As(err, &conflictErr):
		return fasthttp.StatusConflict, conflictErr.Error()
	case errors.As(err, &expiredErr):
		return fasthttp.StatusGone, expiredErr.Error()
	case errors.As(err, &rateLimitErr):
		return fasthttp.StatusTooManyRequests, rateLimitErr.Error()
	case errors.As(err, &unavailableErr):
		return fasthttp.StatusServiceUnavailable, unavailableErr.Error()
	}

	m.logger.Error().Err(err).Msg("internal server error")
	return fasthttp.StatusInternalServerError, "internal server error"
}
