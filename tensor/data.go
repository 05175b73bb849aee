package tensor

import "fmt"

// Data is a set of tensor buffers described by infos. Buffer i always has
// exactly Infos[i].ByteSize() bytes.
type Data struct {
	infos   Infos
	buffers [][]byte
}

// Allocate returns zero-initialized data for provided infos.
func Allocate(infos Infos) (*Data, error) {
	if err := infos.Validate(); err != nil {
		return nil, err
	}
	d := Data{
		infos:   infos.Clone(),
		buffers: make([][]byte, len(infos)),
	}
	for i := range infos {
		d.buffers[i] = make([]byte, infos[i].ByteSize())
	}
	return &d, nil
}

// Wrap returns data that borrows provided buffers. Buffers must not be
// modified while data is in use.
func Wrap(infos Infos, buffers ...[]byte) (*Data, error) {
	if err := infos.Validate(); err != nil {
		return nil, err
	}
	if len(buffers) != len(infos) {
		return nil, fmt.Errorf("%w: %d buffers for %d tensors", ErrShapeMismatch, len(buffers), len(infos))
	}
	for i := range buffers {
		if len(buffers[i]) != infos[i].ByteSize() {
			return nil, fmt.Errorf("%w: tensor %d has %d bytes, expected %d", ErrShapeMismatch, i, len(buffers[i]), infos[i].ByteSize())
		}
	}
	return &Data{
		infos:   infos.Clone(),
		buffers: buffers,
	}, nil
}

// Infos returns the descriptor of the data.
func (d *Data) Infos() Infos {
	return d.infos
}

// Count returns number of tensors.
func (d *Data) Count() int {
	return len(d.buffers)
}

// Tensor returns the buffer of i-th tensor.
func (d *Data) Tensor(i int) ([]byte, error) {
	if i < 0 || i >= len(d.buffers) {
		return nil, fmt.Errorf("%w: tensor %d of %d", ErrIndexOutOfRange, i, len(d.buffers))
	}
	return d.buffers[i], nil
}

// SetTensor copies b into the buffer of i-th tensor.
func (d *Data) SetTensor(i int, b []byte) error {
	if i < 0 || i >= len(d.buffers) {
		return fmt.Errorf("%w: tensor %d of %d", ErrIndexOutOfRange, i, len(d.buffers))
	}
	if len(b) != len(d.buffers[i]) {
		return fmt.Errorf("%w: tensor %d has %d bytes, got %d", ErrShapeMismatch, i, len(d.buffers[i]), len(b))
	}
	copy(d.buffers[i], b)
	return nil
}

// Size returns total size of all buffers in bytes.
func (d *Data) Size() int {
	var size int
	for i := range d.buffers {
		size += len(d.buffers[i])
	}
	return size
}

// Clone returns a deep copy of data. Sink callbacks should use it if
// data is retained after the callback returns.
func (d *Data) Clone() *Data {
	c := Data{
		infos:   d.infos.Clone(),
		buffers: make([][]byte, len(d.buffers)),
	}
	for i := range d.buffers {
		c.buffers[i] = append([]byte(nil), d.buffers[i]...)
	}
	return &c
}

// Combine returns data that references tensors of all provided data in
// order. Buffers are not copied.
func Combine(ds ...*Data) (*Data, error) {
	var c Data
	for _, d := range ds {
		c.infos = append(c.infos, d.infos...)
		c.buffers = append(c.buffers, d.buffers...)
	}
	if len(c.infos) > SizeLimit {
		return nil, fmt.Errorf("%w: combined tensor count %d exceeds %d", ErrInvalidDescriptor, len(c.infos), SizeLimit)
	}
	c.infos = c.infos.Clone()
	return &c, nil
}

// Pick returns data that references only tensors at provided indices.
func (d *Data) Pick(indices ...int) (*Data, error) {
	p := Data{
		infos:   make(Infos, 0, len(indices)),
		buffers: make([][]byte, 0, len(indices)),
	}
	for _, i := range indices {
		if i < 0 || i >= len(d.buffers) {
			return nil, fmt.Errorf("%w: tensor %d of %d", ErrIndexOutOfRange, i, len(d.buffers))
		}
		p.infos = append(p.infos, d.infos[i])
		p.buffers = append(p.buffers, d.buffers[i])
	}
	p.infos = p.infos.Clone()
	return &p, nil
}
