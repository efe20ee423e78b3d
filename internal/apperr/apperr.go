// Package apperr defines the tagged error carried from the service
// layer to the transport. The transport maps codes to response status;
// nothing below it knows about HTTP.
package apperr

import "fmt"

// Error codes surfaced to the transport
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeForbidden          = "FORBIDDEN"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeRequestNotFound    = "REQUEST_NOT_FOUND"
	CodeRequestNameExists  = "REQUEST_NAME_EXISTS"
	CodeRequestLocked      = "REQUEST_LOCKED"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeQuantityExceeded   = "QUANTITY_EXCEEDED"
	CodeInvalidRequestName = "INVALID_REQUEST_NAME"
	CodeValidation         = "VALIDATION_ERROR"
	CodeCatalogNotLoaded   = "CATALOG_NOT_LOADED"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a tagged failure with a machine-readable code and optional
// structured details.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an error with a code and message
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and formatted message
func Newf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With attaches a detail key/value and returns the error
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Constructors for the common failures. Messages match the wire
// contract expected by the UI.

func InvalidCredentials() *Error {
	return New(CodeInvalidCredentials, "Invalid username or password")
}

func TokenExpired() *Error {
	return New(CodeTokenExpired, "Token has expired")
}

func TokenInvalid() *Error {
	return New(CodeTokenInvalid, "Invalid or malformed token")
}

func AccountDisabled() *Error {
	return New(CodeAccountDisabled, "Account has been disabled")
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Access denied"
	}
	return New(CodeForbidden, message)
}

func UserNotFound() *Error {
	return New(CodeUserNotFound, "User not found")
}

func UsernameExists(username string) *Error {
	return Newf(CodeUsernameExists, "Username '%s' already exists", username).
		With("username", username)
}

func ProductNotFound(code string) *Error {
	return Newf(CodeProductNotFound, "No product matches code '%s'", code).
		With("code", code)
}

func RequestNotFound(name string) *Error {
	e := New(CodeRequestNotFound, "Pick request not found")
	if name != "" {
		e.With("request_name", name)
	}
	return e
}

func RequestNameExists(name string) *Error {
	return Newf(CodeRequestNameExists, "Request name '%s' already exists", name).
		With("request_name", name)
}

func RequestLocked(lockedBy string) *Error {
	return New(CodeRequestLocked, "Request is locked by another user").
		With("locked_by", lockedBy)
}

func InvalidStatus(current, expected string) *Error {
	return Newf(CodeInvalidStatus, "Invalid request status. Current: %s, Expected: %s", current, expected).
		With("current_status", current).
		With("expected_status", expected)
}

func QuantityExceeded(remaining int) *Error {
	return Newf(CodeQuantityExceeded, "Quantity exceeds requested amount. Remaining: %d", remaining).
		With("remaining", remaining)
}

func InvalidRequestName(name, reason string) *Error {
	return Newf(CodeInvalidRequestName, "Invalid request name: %s", reason).
		With("request_name", name).
		With("reason", reason)
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func CatalogNotLoaded() *Error {
	return New(CodeCatalogNotLoaded, "Product catalog not loaded")
}

func Internal(message string) *Error {
	if message == "" {
		message = "Internal server error"
	}
	return New(CodeInternal, message)
}
