package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrTutorAccessOnly ErrCode = "TUTOR_ACCESS_ONLY"
	ErrSuperAdminOnly  ErrCode = "SUPER_ADMIN_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrQuizClosed         ErrCode = "QUIZ_CLOSED"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrRegistrationFailed ErrCode = "REGISTRATION_FAILED"
	ErrSubmissionFailed   ErrCode = "SUBMISSION_FAILED"
	ErrQuizLoadFailed     ErrCode = "QUIZ_LOAD_FAILED"
	ErrInvalidPIN         ErrCode = "INVALID_PIN"
	ErrInvalidPhase       ErrCode = "INVALID_PHASE"
	ErrSubmitInFlight     ErrCode = "SUBMIT_IN_FLIGHT"

	// ─── Quiz management ───────────────────────────────────────────────
	ErrQuizNotDraft     ErrCode = "QUIZ_NOT_DRAFT"
	ErrQuizNotPublished ErrCode = "QUIZ_NOT_PUBLISHED"
	ErrNotQuizOwner     ErrCode = "NOT_QUIZ_OWNER"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrBadAnswerKey     ErrCode = "CORRECT_OPTION_NOT_IN_OPTIONS"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrTutorAccessOnly:
		return "This resource is restricted to tutors."
	case ErrSuperAdminOnly:
		return "This resource is restricted to the super-admin."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrQuizClosed:
		return "This quiz's due date has passed."
	case ErrAlreadySubmitted:
		return "You have already submitted this quiz."
	case ErrRegistrationFailed:
		return "Registration failed. Please try again."
	case ErrSubmissionFailed:
		return "Your submission could not be saved. Your answers are intact; please try again."
	case ErrQuizLoadFailed:
		return "The quiz could not be loaded. Please reload and try again."
	case ErrInvalidPIN:
		return "The quiz PIN is incorrect."
	case ErrInvalidPhase:
		return "This action is not available right now."
	case ErrSubmitInFlight:
		return "Your submission is already being processed."

	// ─── Quiz management ───────────────────────────────────────────────
	case ErrQuizNotDraft:
		return "This quiz is not in DRAFT status."
	case ErrQuizNotPublished:
		return "This quiz has not been published."
	case ErrNotQuizOwner:
		return "You are not the owner of this quiz."
	case ErrNoQuestions:
		return "This quiz has no questions."
	case ErrBadAnswerKey:
		return "The correct option must be one of the question's options."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The file type is not supported."
	case ErrFileTooLarge:
		return "The file exceeds the size limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
