package layoutModel

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput                = errors.New("missing input")
	ErrUnsupportedCheckpointFormat = errors.New("unsupported checkpoint format")
	ErrUnsupportedExtractionFormat = errors.New("unsupported extraction format")
	ErrModelUnavailable            = errors.New("model unavailable")
	ErrNotRegistered               = errors.New("dataset not registered")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// MissingInput wraps err so errors.Is matches both ErrMissingInput and err.
func MissingInput(what string, err error) error {
	return fmt.Errorf("%s: %w", what, errors.Join(ErrMissingInput, err))
}

// ErrorName returns a short type name used in client-visible 422 messages.
func ErrorName(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedCheckpointFormat):
		return "UnsupportedCheckpointFormat"
	case errors.Is(err, ErrUnsupportedExtractionFormat):
		return "UnsupportedExtractionFormat"
	case errors.Is(err, ErrModelUnavailable):
		return "ModelUnavailable"
	case errors.Is(err, ErrMissingInput):
		return "MissingInput"
	}
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	return fmt.Sprintf("%T", inner)
}
