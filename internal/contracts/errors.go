package contracts

import (
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is; every *Error matches exactly one kind.
// ⭐ SSOT: 에러 분류는 여기서만 정의
var (
	// ErrNotFound: no snapshot or record at or before the requested date.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRecord: integrity violation, never resolved silently.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrConfiguration: unknown universe name or malformed construction arguments.
	ErrConfiguration = errors.New("configuration error")

	// ErrBackend: transport, auth or non-success response from a backend.
	ErrBackend = errors.New("backend error")
)

// Error carries an error kind together with the failing operation.
type Error struct {
	Kind   error
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds an ErrNotFound error.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// DuplicateRecord builds an ErrDuplicateRecord error.
func DuplicateRecord(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrDuplicateRecord, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Configuration builds an ErrConfiguration error.
func Configuration(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrConfiguration, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Backend wraps err as an ErrBackend error. Errors that already carry a kind
// are returned unchanged so the caller still sees the original kind.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return err
	}
	return &Error{Kind: ErrBackend, Op: op, Err: err}
}

// Backendf builds an ErrBackend error without a cause.
func Backendf(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrBackend, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or nil when err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrDuplicateRecord, ErrConfiguration, ErrBackend} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsRetryable reports whether a caller may retry the call that produced err.
// DuplicateRecord and ConfigurationError indicate data-quality or usage bugs.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrDuplicateRecord) && !errors.Is(err, ErrConfiguration)
}
