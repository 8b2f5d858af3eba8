package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/retainly/churnguard/internal/customer/domain"
	"github.com/retainly/churnguard/internal/observability/logger"
	"go.uber.org/zap"
)

// apiError is the JSON error shape returned on every failure.
type apiError struct {
	status  int
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code }

var (
	ErrNotFound = &apiError{
		status:  http.StatusNotFound,
		Code:    "not_found",
		Message: "resource not found",
	}
	ErrServiceUnavailable = &apiError{
		status:  http.StatusServiceUnavailable,
		Code:    "service_unavailable",
		Message: "service unavailable",
	}
)

func invalidRequestError() *apiError {
	return &apiError{
		status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "malformed request body or query",
	}
}

// validationFields maps domain validation sentinels to the violated field.
var validationFields = map[error]string{
	customerdomain.ErrInvalidName:              "name",
	customerdomain.ErrInvalidEmail:             "email",
	customerdomain.ErrInvalidSubscriptionValue: "subscription_value",
	customerdomain.ErrInvalidContractLength:    "contract_length",
	customerdomain.ErrInvalidSupportTickets:    "support_tickets",
	customerdomain.ErrInvalidLoginFrequency:    "login_frequency",
	customerdomain.ErrInvalidProductUsage:      "features.product_usage",
	customerdomain.ErrInvalidSatisfaction:      "features.support_satisfaction",
	customerdomain.ErrInvalidStatusFilter:      "status",
	customerdomain.ErrInvalidSort:              "sort",
	customerdomain.ErrInvalidInteractionType:   "type",
}

// AbortWithError maps domain errors onto HTTP responses. Anything
// unrecognized is an internal failure and is logged, not swallowed.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.status, gin.H{"error": apiErr})
		return
	}

	if errors.Is(err, customerdomain.ErrCustomerNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": &apiError{
			Code:    "customer_not_found",
			Message: "customer not found",
		}})
		return
	}

	// Duplicate email is a conflict, surfaced distinctly from generic
	// validation so clients can present a specific message.
	if errors.Is(err, customerdomain.ErrEmailTaken) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": &apiError{
			Code:    "email_taken",
			Field:   "email",
			Message: "a customer with this email already exists",
		}})
		return
	}

	for sentinel, field := range validationFields {
		if errors.Is(err, sentinel) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": &apiError{
				Code:    sentinel.Error(),
				Field:   field,
				Message: "invalid value for " + field,
			}})
			return
		}
	}

	logger.FromContext(c.Request.Context()).Error("request failed with internal error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": &apiError{
		Code:    "internal_error",
		Message: "internal error",
	}})
}
