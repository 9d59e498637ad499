// Package apierr defines the typed error carried between components and
// translated to HTTP only by the admission controller.
package apierr

import "net/http"

// Error is a typed, localized-message error with a fixed HTTP status.
// Components raise these; nothing but the admission controller converts
// one into a wire response.
type Error struct {
	Code    string
	Status  int
	Message string
	Fields  map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap builds an Error carrying an underlying cause for logging.
func Wrap(status int, code, message string, cause error) *Error {
	return &Error{Status: status, Code: code, Message: message, cause: cause}
}

// WithFields attaches contextual response fields (e.g. retryAfter, remaining).
func (e *Error) WithFields(fields map[string]interface{}) *Error {
	e.Fields = fields
	return e
}

// Error code constants, matching the status/code table.
const (
	CodeURLMissing          = "URL_MISSING"
	CodeInvalidLanguage     = "INVALID_LANGUAGE"
	CodeInvalidMealType     = "INVALID_MEAL_TYPE"
	CodeInvalidDietTypes    = "INVALID_DIET_TYPES"
	CodeInvalidEquipment    = "INVALID_EQUIPMENT"
	CodeInvalidIngredients  = "INVALID_INGREDIENTS"
	CodeNotRecipe           = "NOT_RECIPE"
	CodePlatformUnsupported = "PLATFORM_UNSUPPORTED"

	CodeAuthMissing = "AUTH_MISSING"
	CodeAuthInvalid = "AUTH_INVALID"
	CodeAuthExpired = "AUTH_EXPIRED"
	CodeConfigError = "CONFIG_ERROR"

	CodePremiumRequired = "PREMIUM_REQUIRED"
	CodeForbidden       = "FORBIDDEN"

	CodeAnalysisInProgress = "ANALYSIS_IN_PROGRESS"

	CodeRateLimited   = "RATE_LIMITED"
	CodeUserBlocked   = "USER_BLOCKED"
	CodeIPRateLimited = "IP_RATE_LIMITED"
	CodeIPBlocked     = "IP_BLOCKED"

	CodeDailyLimitReached     = "DAILY_LIMIT_REACHED"
	CodeHourlyLimitReached    = "HOURLY_LIMIT_REACHED"
	CodeUserDailyLimitReached = "USER_DAILY_LIMIT_REACHED"

	CodeServerOverloaded = "SERVER_OVERLOADED"
	CodeInternal         = "INTERNAL_ERROR"
)

func NotRecipe(message string) *Error {
	return New(http.StatusBadRequest, CodeNotRecipe, message)
}

func Internal(cause error) *Error {
	return Wrap(http.StatusInternalServerError, CodeInternal, "an internal error occurred", cause)
}
