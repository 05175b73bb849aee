// Package tensor provides typed tensor descriptors and raw buffer sets
// that flow through the pipeline.
//
// Buffers are raw memory in native byte order. Nothing in the engine
// interprets them in any other order, and the helpers in this package
// that read or write element values use binary.NativeEndian.
package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// SizeLimit is the maximum number of tensors a single set may hold.
const SizeLimit = 16

var (
	// ErrInvalidDescriptor is returned when tensor info is malformed.
	ErrInvalidDescriptor = errors.New("invalid tensor descriptor")
	// ErrIndexOutOfRange is returned when tensor index exceeds the count.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrShapeMismatch is returned when tensor data doesn't match the
	// expected tensor infos.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Type is the element type of the tensor.
type Type uint8

// Supported element types. Zero value is invalid.
const (
	Int8 Type = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float16
	Float32
	Float64
)

var typeNames = map[Type]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float16: "float16",
	Float32: "float32",
	Float64: "float64",
}

// Size returns the byte size of single element. Zero is returned for
// unknown types.
func (t Type) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid returns true if type is one of supported types.
func (t Type) Valid() bool {
	return t.Size() != 0
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType returns type for its name, e.g. "uint8".
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidDescriptor, s)
}
