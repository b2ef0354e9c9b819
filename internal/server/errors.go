package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/petroworks/pumpline/internal/claims/domain"
	eqdomain "github.com/petroworks/pumpline/internal/equalisation/domain"
	levydomain "github.com/petroworks/pumpline/internal/levy/domain"
	pbdomain "github.com/petroworks/pumpline/internal/pricebuildup/domain"
	ratedomain "github.com/petroworks/pumpline/internal/ratecomponent/domain"
	recdomain "github.com/petroworks/pumpline/internal/reconciliation/domain"
	refdomain "github.com/petroworks/pumpline/internal/reference/domain"
	setdomain "github.com/petroworks/pumpline/internal/settlement/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ratedomain.ErrInvalidCode),
		errors.Is(err, ratedomain.ErrInvalidCategory),
		errors.Is(err, ratedomain.ErrInvalidUnit),
		errors.Is(err, ratedomain.ErrInvalidValue),
		errors.Is(err, ratedomain.ErrInvalidEffectiveRange),
		errors.Is(err, eqdomain.ErrInvalidThreshold),
		errors.Is(err, eqdomain.ErrInvalidFactor),
		errors.Is(err, recdomain.ErrInvalidConsignment),
		errors.Is(err, recdomain.ErrInvalidVolume),
		errors.Is(err, recdomain.ErrInvalidFactor),
		errors.Is(err, recdomain.ErrInvalidNote),
		errors.Is(err, levydomain.ErrInvalidDelivery),
		errors.Is(err, levydomain.ErrInvalidFactor),
		errors.Is(err, pbdomain.ErrInvalidRequest),
		errors.Is(err, claimdomain.ErrInvalidClaimRequest),
		errors.Is(err, claimdomain.ErrInvalidPageToken),
		errors.Is(err, claimdomain.ErrInvalidAnomaly),
		errors.Is(err, claimdomain.ErrRejectionReasonRequired),
		errors.Is(err, setdomain.ErrInvalidWindow),
		errors.Is(err, setdomain.ErrNoClaims),
		errors.Is(err, refdomain.ErrInvalidDelivery),
		errors.Is(err, refdomain.ErrInvalidStation),
		errors.Is(err, refdomain.ErrInvalidDealer):
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ratedomain.ErrComponentNotFound),
		errors.Is(err, pbdomain.ErrBreakdownNotFound),
		errors.Is(err, pbdomain.ErrStationNotFound),
		errors.Is(err, recdomain.ErrNotFound),
		errors.Is(err, claimdomain.ErrClaimNotFound),
		errors.Is(err, claimdomain.ErrAnomalyNotFound),
		errors.Is(err, claimdomain.ErrDeliveryNotFound),
		errors.Is(err, setdomain.ErrSettlementMissing),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ratedomain.ErrVersionConflict),
		errors.Is(err, ratedomain.ErrOverlappingWindow),
		errors.Is(err, claimdomain.ErrInvalidTransition),
		errors.Is(err, claimdomain.ErrDuplicateClaim),
		errors.Is(err, claimdomain.ErrAlreadySettled),
		errors.Is(err, recdomain.ErrReconciliationFinal),
		errors.Is(err, recdomain.ErrInvalidStatusChange):
		return true
	}
	return false
}

func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, pbdomain.ErrMissingBaseRate),
		errors.Is(err, pbdomain.ErrPriceOutOfRange),
		errors.Is(err, pbdomain.ErrBreakdownMismatch),
		errors.Is(err, eqdomain.ErrInvalidRoute),
		errors.Is(err, claimdomain.ErrUnresolvedAnomalies),
		errors.Is(err, claimdomain.ErrClaimNotApproved),
		errors.Is(err, setdomain.ErrPayeeBlocked),
		errors.Is(err, setdomain.ErrSettlementFailed):
		return true
	}
	return false
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "internal", payload.Type
	case status >= 400:
		return "client", payload.Type
	default:
		return "", ""
	}
}
