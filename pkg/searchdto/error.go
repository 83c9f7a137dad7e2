package searchdto

// Error codes carried by ErrorResponse.Code.
const (
	ErrMalformedInput     = "MALFORMED_INPUT"
	ErrUnknownVocabulary  = "UNKNOWN_VOCABULARY"
	ErrInvalidRequest     = "INVALID_REQUEST"
	ErrDuplicateGame      = "DUPLICATE_GAME"
	ErrGameNotFound       = "GAME_NOT_FOUND"
	ErrStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrInvalidContent     = "INVALID_CONTENT_TYPE"
	ErrRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrNotFound           = "NOT_FOUND"
	ErrInternalError      = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	// Existing is set on DUPLICATE_GAME responses.
	Existing *Game `json:"existing,omitempty"`
}

// Retryable reports whether the failure is transient.
func (e ErrorResponse) Retryable() bool {
	return e.Code == ErrStorageUnavailable
}
