package dto

import "net/http"

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Workflow error codes, emitted by the questionnaire domain layer
const (
	// ErrCodeSessionNotFound is used when the session does not exist or
	// belongs to another user
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	// ErrCodeSessionExpired is used when the session passed its expiry window
	ErrCodeSessionExpired = "SESSION_EXPIRED"
	// ErrCodeSessionAlreadyFinalized is used when mutating a finalized session
	ErrCodeSessionAlreadyFinalized = "SESSION_ALREADY_FINALIZED"
	// ErrCodeInvalidTransition is used when input does not match the state
	// the workflow is suspended in
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	// ErrCodeValidationFailed is used when an answer fails question validation
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	// ErrCodeGeneratorFailure is used when document generation fails outright
	ErrCodeGeneratorFailure = "GENERATOR_FAILURE"
	// ErrCodeConcurrentAccessConflict is used when another operation holds
	// the session lock
	ErrCodeConcurrentAccessConflict = "CONCURRENT_ACCESS_CONFLICT"
)

// Upload error codes, emitted by the upload service
const (
	// ErrCodeFileNotFound is used when an uploaded file does not exist or
	// belongs to another user
	ErrCodeFileNotFound = "FILE_NOT_FOUND"
	// ErrCodeUnsupportedFileType is used when the content type is not whitelisted
	ErrCodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	// ErrCodeFileTooLarge is used when the file exceeds the upload size limit
	ErrCodeFileTooLarge = "FILE_TOO_LARGE"
	// ErrCodeEmptyFile is used when the uploaded file has no content
	ErrCodeEmptyFile = "EMPTY_FILE"
	// ErrCodeStorageUnavailable is used when object storage is unreachable
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Workflow errors
	ErrCodeSessionNotFound:          http.StatusNotFound,
	ErrCodeSessionExpired:           http.StatusGone,
	ErrCodeSessionAlreadyFinalized:  http.StatusConflict,
	ErrCodeInvalidTransition:        http.StatusConflict,
	ErrCodeValidationFailed:         http.StatusBadRequest,
	ErrCodeGeneratorFailure:         http.StatusBadGateway,
	ErrCodeConcurrentAccessConflict: http.StatusConflict,

	// Upload errors
	ErrCodeFileNotFound:        http.StatusNotFound,
	ErrCodeUnsupportedFileType: http.StatusUnsupportedMediaType,
	ErrCodeFileTooLarge:        http.StatusRequestEntityTooLarge,
	ErrCodeEmptyFile:           http.StatusBadRequest,
	ErrCodeStorageUnavailable:  http.StatusServiceUnavailable,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// Domain-layer codes passed through verbatim
	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"INVALID_INPUT":        http.StatusBadRequest,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"UNAUTHORIZED":         http.StatusUnauthorized,
	"FORBIDDEN":            http.StatusForbidden,
	"INVALID_STATE":        http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
