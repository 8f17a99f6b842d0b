package arenadto

// Error codes carried by DomainError.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "session_not_found"
	CodeInvalidState   = "invalid_state"
	CodeIllegalMove    = "illegal_move"
	CodeEngineFailure  = "engine_failure"
	CodeSessionHeld    = "session_held"
	CodeAtCapacity     = "engine_capacity"
	CodeInternal       = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "arena error"
}
