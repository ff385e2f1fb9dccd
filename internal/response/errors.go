package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidQuery   ErrCode = "INVALID_QUERY"

	// ─── Rounds ────────────────────────────────────────────────────────
	ErrUnknownRound     ErrCode = "UNKNOWN_ROUND"
	ErrUnknownSession   ErrCode = "UNKNOWN_SESSION"
	ErrRoundNotFound    ErrCode = "ROUND_NOT_FOUND"
	ErrRoundUnavailable ErrCode = "ROUND_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "인증 토큰이 필요합니다."
	case ErrTokenInvalid:
		return "인증 토큰이 유효하지 않습니다."
	case ErrTokenExpired:
		return "인증 토큰이 만료되었습니다. 다시 로그인해 주세요."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "수험생만 접근할 수 있습니다."
	case ErrAdminAccessOnly:
		return "관리자만 접근할 수 있습니다."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "입력값을 확인해 주세요."
	case ErrInvalidPayload:
		return "요청 본문이 올바르지 않습니다."
	case ErrInvalidQuery:
		return "요청 파라미터가 올바르지 않습니다."

	// ─── Rounds ────────────────────────────────────────────────────────
	case ErrUnknownRound:
		return "존재하지 않는 회차입니다."
	case ErrUnknownSession:
		return "존재하지 않는 교시입니다."
	case ErrRoundNotFound:
		return "해당 회차의 응시 기록이 없습니다."
	case ErrRoundUnavailable:
		return "성적 정보를 일시적으로 불러올 수 없습니다. 잠시 후 다시 시도해 주세요."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "서버 내부 오류가 발생했습니다."
	default:
		return "알 수 없는 오류가 발생했습니다."
	}
}
