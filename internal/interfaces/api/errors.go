package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"networth/internal/domain"
)

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidHolding), errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrHoldingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoHoldings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrStoreWriteFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func errUnknownCategory(c string) error {
	return fmt.Errorf("unknown category %q", c)
}

func errBadTime(s string) error {
	return fmt.Errorf("bad time %q (want RFC3339 or YYYY-MM-DD)", s)
}
