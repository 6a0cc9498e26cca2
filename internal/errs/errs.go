// Package errs defines the closed set of failure kinds returned by the library services.
// Transports translate a Kind into their own status codes in exactly one place.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Internal is an unexpected failure, e.g. the database is unreachable.
	Internal Kind = iota
	// InvalidArgument means the input was malformed or missing.
	InvalidArgument
	// NotFound means a referenced entity does not exist.
	NotFound
	// AlreadyExists means a uniqueness rule would be broken.
	AlreadyExists
	// FailedPrecondition means the entities are valid but the operation is not allowed in their current state.
	FailedPrecondition
)

var kindNames = map[Kind]string{
	Internal:           "INTERNAL",
	InvalidArgument:    "INVALID_ARGUMENT",
	NotFound:           "NOT_FOUND",
	AlreadyExists:      "ALREADY_EXISTS",
	FailedPrecondition: "FAILED_PRECONDITION",
}

// Kinds lists every kind.
var Kinds = []Kind{Internal, InvalidArgument, NotFound, AlreadyExists, FailedPrecondition}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return Internal, false
}

// Error is a tagged failure.
type Error struct {
	Kind     Kind
	Resource string // entity type for NotFound, e.g. "book"
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidArgumentf returns an InvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return &Error{Kind: InvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a NotFound error for the given resource and id.
func NotFoundf(resource, id string) error {
	return &Error{
		Kind:     NotFound,
		Resource: resource,
		Message:  fmt.Sprintf("%s with id %s not found", resource, id),
	}
}

// AlreadyExistsf returns an AlreadyExists error.
func AlreadyExistsf(format string, args ...any) error {
	return &Error{Kind: AlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// FailedPreconditionf returns a FailedPrecondition error.
func FailedPreconditionf(format string, args ...any) error {
	return &Error{Kind: FailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

// Internalf wraps err as an Internal error.
func Internalf(err error, format string, args ...any) error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
// Untagged errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is a tagged error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// ResourceOf returns the resource recorded on a NotFound error, or "".
func ResourceOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Resource
	}
	return ""
}

// OrInternal returns err unchanged when it already carries a Kind and wraps
// it as Internal otherwise. A nil err stays nil.
func OrInternal(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internalf(err, format, args...)
}
