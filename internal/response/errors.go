package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAnswer  ErrCode = "INVALID_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNotEligible           ErrCode = "NOT_ELIGIBLE"
	ErrInvalidEntryToken     ErrCode = "INVALID_ENTRY_TOKEN"
	ErrAlreadyRegistered     ErrCode = "ALREADY_REGISTERED"
	ErrAttemptNotActive      ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrInvalidTransition     ErrCode = "INVALID_TRANSITION"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"
	ErrPaperInUse            ErrCode = "PAPER_IN_USE"
	ErrNotRandomPaper        ErrCode = "NOT_RANDOM_PAPER"
	ErrNoCriteria            ErrCode = "NO_CRITERIA"
	ErrMonitorUnavailable    ErrCode = "MONITOR_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrScoring  ErrCode = "SCORING_FAILED"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidAnswer:
		return "Selected option must be one of A, B, C or D."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The request conflicts with a concurrent change. Please retry."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNotEligible:
		return "You cannot start this exam right now."
	case ErrInvalidEntryToken:
		return "Exam entry token is invalid."
	case ErrAlreadyRegistered:
		return "You are already registered for this exam."
	case ErrAttemptNotActive:
		return "This attempt is no longer active."
	case ErrInvalidTransition:
		return "The attempt cannot move to the requested status."
	case ErrInsufficientQuestions:
		return "Not enough questions match the paper criteria."
	case ErrPaperInUse:
		return "The paper already has recorded answers and cannot be regenerated."
	case ErrNotRandomPaper:
		return "Only randomly generated papers can be regenerated."
	case ErrNoCriteria:
		return "The paper has no generation criteria."
	case ErrMonitorUnavailable:
		return "Live monitoring is not available."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrScoring:
		return "The attempt could not be scored. It remains open."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
