package extract

import (
	"errors"
	"fmt"

	"github.com/salaheddineelazouti/Projet-innovation/internal/resilience"
)

// Kind classifies why a completion call produced nothing usable.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindMalformed Kind = "malformed"
	KindTimeout   Kind = "timeout"
)

// Error is returned by the classifier and the extractor. The pipeline
// treats every kind the same way; the kind exists for logs and callers
// that want to count failures.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// callError classifies a failed completion call.
func callError(op string, err error) *Error {
	kind := KindNetwork
	if resilience.IsTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func malformedError(op string, err error) *Error {
	return &Error{Kind: KindMalformed, Op: op, Err: err}
}
