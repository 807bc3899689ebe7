package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// Pipeline errors. Unavailable errors come from external collaborators
	// and are retried at the failing call boundary; timeout errors mean the
	// configured deadline for one external call elapsed.
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrIndexUnavailable      = errors.New("index unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrRetrievalTimeout      = errors.New("retrieval timeout")
	ErrGenerationTimeout     = errors.New("generation timeout")
	ErrOverloaded            = errors.New("overloaded")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRetriable reports whether an error belongs to the transient class that
// may be retried at its own operation boundary.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrIndexUnavailable) ||
		errors.Is(err, ErrGenerationUnavailable) ||
		errors.Is(err, ErrRetrievalTimeout) ||
		errors.Is(err, ErrGenerationTimeout)
}
