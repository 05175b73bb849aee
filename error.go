package pipe

import (
	"errors"
	"strings"

	"pipelined.dev/tensorpipe/element"
	"pipelined.dev/tensorpipe/filter"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/parse"
	"pipelined.dev/tensorpipe/single"
	"pipelined.dev/tensorpipe/tensor"
)

var (
	// ErrInvalidState is returned if pipeline method cannot be executed
	// at this moment.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotInitialized is returned when pipeline is created before
	// Initialize.
	ErrNotInitialized = errors.New("not initialized")
	// ErrUnknownElement is returned when pipeline has no element with
	// provided name and kind.
	ErrUnknownElement = errors.New("unknown element")
	// ErrUnknownPad is returned when element has no pad with provided
	// name.
	ErrUnknownPad = errors.New("unknown pad")
	// ErrUnknownCallback is returned when sink has no callback with
	// provided id.
	ErrUnknownCallback = errors.New("unknown callback")
	// ErrInvalidLink is returned when elements are linked in a way that
	// their pads don't allow.
	ErrInvalidLink = errors.New("invalid link")
	// ErrCycle is returned when links form a cycle.
	ErrCycle = runtime.ErrCycle
)

// Errors of other packages.
var (
	ErrInvalidDescriptor     = tensor.ErrInvalidDescriptor
	ErrIndexOutOfRange       = tensor.ErrIndexOutOfRange
	ErrShapeMismatch         = tensor.ErrShapeMismatch
	ErrSyntax                = parse.ErrSyntax
	ErrUnresolvedReference   = parse.ErrUnresolvedReference
	ErrDuplicateName         = parse.ErrDuplicateName
	ErrUnsupportedElement    = parse.ErrUnsupportedElement
	ErrInvalidProperty       = element.ErrInvalidProperty
	ErrNameAlreadyRegistered = filter.ErrNameAlreadyRegistered
	ErrNotRegistered         = filter.ErrNotRegistered
	ErrInUse                 = filter.ErrInUse
	ErrTimeout               = single.ErrTimeout
)

// ElementError is an error that occurred in the named element.
type ElementError = runtime.ElementError

// execErrors wraps errors that might occur when multiple elements or
// pipelines are failing.
type execErrors []error

func (e execErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Unwrap allows to match any of errors.
func (e execErrors) Unwrap() []error {
	return e
}

// ret returns untyped nil if error is list is empty.
func (e execErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
