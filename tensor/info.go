package tensor

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

type (
	// Dimension is the shape of tensor. The first entry is the innermost
	// one, as in "3:224:224:1" for RGB 224x224 image.
	Dimension []uint32

	// Info describes a single tensor.
	Info struct {
		Name      string
		Type      Type
		Dimension Dimension
	}

	// Infos describes a set of tensors.
	Infos []Info
)

// ParseDimension parses colon-separated dimension string.
func ParseDimension(s string) (Dimension, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty dimension", ErrInvalidDescriptor)
	}
	parts := strings.Split(s, ":")
	d := make(Dimension, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: dimension %q: %v", ErrInvalidDescriptor, s, err)
		}
		if v <= 0 || v > 1<<32-1 {
			return nil, fmt.Errorf("%w: dimension %q has non-positive entry", ErrInvalidDescriptor, s)
		}
		d = append(d, uint32(v))
	}
	return d, nil
}

// Elements returns number of elements.
func (d Dimension) Elements() int {
	if len(d) == 0 {
		return 0
	}
	n := 1
	for _, v := range d {
		n *= int(v)
	}
	return n
}

// Equal compares dimensions. Trailing ones are insignificant, so
// 10:1:1:1 is equal to 10.
func (d Dimension) Equal(other Dimension) bool {
	a, b := d.trim(), other.trim()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (d Dimension) trim() Dimension {
	n := len(d)
	for n > 1 && d[n-1] == 1 {
		n--
	}
	return d[:n]
}

func (d Dimension) String() string {
	s := make([]string, len(d))
	for i, v := range d {
		s[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(s, ":")
}

// Validate checks the type and dimension of the tensor.
func (i Info) Validate() error {
	if !i.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, i.Type)
	}
	if len(i.Dimension) == 0 {
		return fmt.Errorf("%w: empty dimension", ErrInvalidDescriptor)
	}
	for _, v := range i.Dimension {
		if v == 0 {
			return fmt.Errorf("%w: dimension %v has zero entry", ErrInvalidDescriptor, i.Dimension)
		}
	}
	if _, ok := byteSize(i.Type, i.Dimension); !ok {
		return fmt.Errorf("%w: %v is too large", ErrInvalidDescriptor, i)
	}
	return nil
}

// byteSize returns false if the size doesn't fit into int.
func byteSize(t Type, d Dimension) (int, bool) {
	size := uint64(t.Size())
	for _, v := range d {
		hi, lo := bits.Mul64(size, uint64(v))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		size = lo
	}
	return int(size), true
}

// ByteSize returns the size of tensor data in bytes.
func (i Info) ByteSize() int {
	return i.Type.Size() * i.Dimension.Elements()
}

// Equal compares type and dimension. Names are ignored.
func (i Info) Equal(other Info) bool {
	return i.Type == other.Type && i.Dimension.Equal(other.Dimension)
}

func (i Info) String() string {
	return fmt.Sprintf("%v[%v]", i.Type, i.Dimension)
}

// Validate checks the count and every tensor info in the set.
func (is Infos) Validate() error {
	if len(is) == 0 || len(is) > SizeLimit {
		return fmt.Errorf("%w: tensor count %d out of [1, %d]", ErrInvalidDescriptor, len(is), SizeLimit)
	}
	var total int
	for n, i := range is {
		if err := i.Validate(); err != nil {
			return fmt.Errorf("tensor %d: %w", n, err)
		}
		size := i.ByteSize()
		if total > math.MaxInt-size {
			return fmt.Errorf("%w: total size of %v is too large", ErrInvalidDescriptor, is)
		}
		total += size
	}
	return nil
}

// Equal compares two sets of infos.
func (is Infos) Equal(other Infos) bool {
	if len(is) != len(other) {
		return false
	}
	for n := range is {
		if !is[n].Equal(other[n]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of infos.
func (is Infos) Clone() Infos {
	if is == nil {
		return nil
	}
	c := make(Infos, len(is))
	for n, i := range is {
		c[n] = Info{
			Name:      i.Name,
			Type:      i.Type,
			Dimension: append(Dimension(nil), i.Dimension...),
		}
	}
	return c
}

// ByteSize returns the total size of all tensors in bytes.
func (is Infos) ByteSize() int {
	var size int
	for _, i := range is {
		size += i.ByteSize()
	}
	return size
}

func (is Infos) String() string {
	s := make([]string, len(is))
	for n, i := range is {
		s[n] = i.String()
	}
	return strings.Join(s, ",")
}

// Match returns ErrShapeMismatch if infos are not equal.
func (is Infos) Match(expected Infos) error {
	if !is.Equal(expected) {
		return fmt.Errorf("%w: got %v, expected %v", ErrShapeMismatch, is, expected)
	}
	return nil
}

// ParseInfos parses comma-separated dimensions and types, e.g.
// "3:224:224:1,10" and "uint8,float32". Counts must be equal.
func ParseInfos(dimensions, types string) (Infos, error) {
	dims := strings.Split(dimensions, ",")
	typs := strings.Split(types, ",")
	if len(dims) != len(typs) {
		return nil, fmt.Errorf("%w: %d dimensions and %d types", ErrInvalidDescriptor, len(dims), len(typs))
	}
	is := make(Infos, len(dims))
	for n := range dims {
		d, err := ParseDimension(dims[n])
		if err != nil {
			return nil, err
		}
		t, err := ParseType(typs[n])
		if err != nil {
			return nil, err
		}
		is[n] = Info{Type: t, Dimension: d}
	}
	if err := is.Validate(); err != nil {
		return nil, err
	}
	return is, nil
}
