package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrEmbeddingUnavailable
	ErrIndexUnavailable
	ErrGenerationUnavailable
	ErrRetrievalTimeout
	ErrGenerationTimeout
	ErrOverloaded
)
