// Package stage holds the error taxonomy shared by the inference stage ports
// (detection, recognition, translation, synthesis).
package stage

import "errors"

// Kind identifies which stage produced a failure.
type Kind int

const (
	Detection Kind = iota + 1
	Recognition
	Translation
	Synthesis
)

func (k Kind) String() string {
	switch k {
	case Detection:
		return "detection"
	case Recognition:
		return "recognition"
	case Translation:
		return "translation"
	case Synthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

// Sentinels matched with errors.Is against any *Error of the same kind.
var (
	ErrDetection   = errors.New("detection failed")
	ErrRecognition = errors.New("recognition failed")
	ErrTranslation = errors.New("translation failed")
	ErrSynthesis   = errors.New("synthesis failed")
)

func (k Kind) sentinel() error {
	switch k {
	case Detection:
		return ErrDetection
	case Recognition:
		return ErrRecognition
	case Translation:
		return ErrTranslation
	case Synthesis:
		return ErrSynthesis
	default:
		return nil
	}
}

// Error is a recoverable stage failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " failed"
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap tags err with kind. A nil err stays nil and an error already tagged
// with the same kind is returned unchanged.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) && se.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the stage kind carried by err, or 0 when untagged.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
