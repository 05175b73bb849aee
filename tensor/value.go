package tensor

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// Value returns i-th element of buffer b interpreted as type t.
func Value(t Type, b []byte, i int) float64 {
	o := i * t.Size()
	switch t {
	case Int8:
		return float64(int8(b[o]))
	case Uint8:
		return float64(b[o])
	case Int16:
		return float64(int16(binary.NativeEndian.Uint16(b[o:])))
	case Uint16:
		return float64(binary.NativeEndian.Uint16(b[o:]))
	case Int32:
		return float64(int32(binary.NativeEndian.Uint32(b[o:])))
	case Uint32:
		return float64(binary.NativeEndian.Uint32(b[o:]))
	case Int64:
		return float64(int64(binary.NativeEndian.Uint64(b[o:])))
	case Uint64:
		return float64(binary.NativeEndian.Uint64(b[o:]))
	case Float16:
		return float64(float16.Frombits(binary.NativeEndian.Uint16(b[o:])).Float32())
	case Float32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b[o:])))
	case Float64:
		return math.Float64frombits(binary.NativeEndian.Uint64(b[o:]))
	}
	return 0
}

// SetValue sets i-th element of buffer b interpreted as type t. Integer
// types are saturated to their range.
func SetValue(t Type, b []byte, i int, v float64) {
	o := i * t.Size()
	switch t {
	case Int8:
		b[o] = byte(int8(saturate(v, math.MinInt8, math.MaxInt8)))
	case Uint8:
		b[o] = uint8(saturate(v, 0, math.MaxUint8))
	case Int16:
		binary.NativeEndian.PutUint16(b[o:], uint16(int16(saturate(v, math.MinInt16, math.MaxInt16))))
	case Uint16:
		binary.NativeEndian.PutUint16(b[o:], uint16(saturate(v, 0, math.MaxUint16)))
	case Int32:
		binary.NativeEndian.PutUint32(b[o:], uint32(int32(saturate(v, math.MinInt32, math.MaxInt32))))
	case Uint32:
		binary.NativeEndian.PutUint32(b[o:], uint32(saturate(v, 0, math.MaxUint32)))
	case Int64:
		binary.NativeEndian.PutUint64(b[o:], uint64(toInt64(v)))
	case Uint64:
		binary.NativeEndian.PutUint64(b[o:], toUint64(v))
	case Float16:
		binary.NativeEndian.PutUint16(b[o:], float16.Fromfloat32(float32(v)).Bits())
	case Float32:
		binary.NativeEndian.PutUint32(b[o:], math.Float32bits(float32(v)))
	case Float64:
		binary.NativeEndian.PutUint64(b[o:], math.Float64bits(v))
	}
}

func saturate(v, min, max float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < min:
		return min
	case v > max:
		return max
	}
	return v
}

// float64 can't represent 64-bit bounds exactly, conversion at the
// bounds is done explicitly.
func toInt64(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

func toUint64(v float64) uint64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(v)
}
