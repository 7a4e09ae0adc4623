package errors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid")
	ErrConflict      = errors.New("conflict")
	ErrInternal      = errors.New("internal")
	ErrConfiguration = errors.New("configuration error")
	ErrExhausted     = errors.New("all generation strategies exhausted")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsConfiguration reports whether err marks a fatal misconfiguration, as
// opposed to a runtime condition the fallback chain may recover from.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
