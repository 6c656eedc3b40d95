package questionnaire

import "github.com/legalintake/backend/internal/domain/shared"

// Workflow error kinds. ValidationFailed and InvalidTransition are recovered
// locally (the engine stays suspended on the same prompt); the session-level
// errors are terminal for the call that raised them.
var (
	ErrSessionNotFound         = shared.NewDomainError("SESSION_NOT_FOUND", "Questionnaire session not found")
	ErrSessionExpired          = shared.NewDomainError("SESSION_EXPIRED", "Questionnaire session has expired")
	ErrSessionAlreadyFinalized = shared.NewDomainError("SESSION_ALREADY_FINALIZED", "Questionnaire session is already finalized")
	ErrConcurrentAccess        = shared.NewDomainError("CONCURRENT_ACCESS_CONFLICT", "Another operation is in progress for this session")
)

// NewInvalidTransitionError reports an input that does not match the state
// the engine is suspended in.
func NewInvalidTransitionError(message string) *shared.DomainError {
	return shared.NewDomainError("INVALID_TRANSITION", message)
}

// NewValidationError reports an answer that does not satisfy the current
// question's type or constraints.
func NewValidationError(message string) *shared.DomainError {
	return shared.NewDomainError("VALIDATION_FAILED", message)
}

// IsRecoverable reports whether the error leaves the session suspended on
// its previous prompt, so the caller can re-emit it with the error attached.
func IsRecoverable(err error) bool {
	de, ok := err.(*shared.DomainError)
	if !ok {
		return false
	}
	return de.Code == "INVALID_TRANSITION" || de.Code == "VALIDATION_FAILED"
}
