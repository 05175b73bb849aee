package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/tensorpipe/tensor"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name  string
		infos tensor.Infos
		sizes []int
		err   error
	}{
		{
			name: "uint8 image",
			infos: tensor.Infos{
				{Type: tensor.Uint8, Dimension: tensor.Dimension{3, 224, 224, 1}},
			},
			sizes: []int{3 * 224 * 224},
		},
		{
			name: "multiple tensors",
			infos: tensor.Infos{
				{Type: tensor.Int32, Dimension: tensor.Dimension{10}},
				{Type: tensor.Float64, Dimension: tensor.Dimension{2, 2}},
				{Type: tensor.Float16, Dimension: tensor.Dimension{5}},
			},
			sizes: []int{40, 32, 10},
		},
		{
			name: "zero dimension",
			infos: tensor.Infos{
				{Type: tensor.Uint8, Dimension: tensor.Dimension{3, 0}},
			},
			err: tensor.ErrInvalidDescriptor,
		},
		{
			name: "size overflow",
			infos: tensor.Infos{
				{Type: tensor.Uint8, Dimension: tensor.Dimension{1 << 31, 1 << 31, 4}},
			},
			err: tensor.ErrInvalidDescriptor,
		},
		{
			name: "element size overflow",
			infos: tensor.Infos{
				{Type: tensor.Float64, Dimension: tensor.Dimension{1<<32 - 1, 1<<32 - 1}},
			},
			err: tensor.ErrInvalidDescriptor,
		},
		{
			name: "unknown type",
			infos: tensor.Infos{
				{Type: tensor.Type(100), Dimension: tensor.Dimension{3}},
			},
			err: tensor.ErrInvalidDescriptor,
		},
		{
			name:  "empty",
			infos: tensor.Infos{},
			err:   tensor.ErrInvalidDescriptor,
		},
		{
			name:  "too many",
			infos: make(tensor.Infos, tensor.SizeLimit+1),
			err:   tensor.ErrInvalidDescriptor,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d, err := tensor.Allocate(test.infos)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(test.infos), d.Count())
			for i, size := range test.sizes {
				b, err := d.Tensor(i)
				require.NoError(t, err)
				assert.Equal(t, size, len(b))
				assert.Equal(t, test.infos[i].ByteSize(), len(b))
				for _, v := range b {
					assert.Zero(t, v)
				}
			}
		})
	}
}

func TestTensorIndex(t *testing.T) {
	d, err := tensor.Allocate(tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{4}}})
	require.NoError(t, err)

	_, err = d.Tensor(1)
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)
	_, err = d.Tensor(-1)
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)

	err = d.SetTensor(0, []byte{1, 2, 3})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	err = d.SetTensor(0, []byte{1, 2, 3, 4})
	assert.NoError(t, err)
	b, _ := d.Tensor(0)
	assert.Equal(t, []byte{1, 2, 3, 4}, b)
}

func TestWrapAndClone(t *testing.T) {
	infos := tensor.Infos{{Type: tensor.Uint16, Dimension: tensor.Dimension{2}}}
	buf := []byte{1, 2, 3, 4}

	_, err := tensor.Wrap(infos, []byte{1})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	d, err := tensor.Wrap(infos, buf)
	require.NoError(t, err)
	c := d.Clone()
	buf[0] = 100
	b, _ := c.Tensor(0)
	assert.Equal(t, byte(1), b[0])
	b, _ = d.Tensor(0)
	assert.Equal(t, byte(100), b[0])
}

func TestCombinePick(t *testing.T) {
	a, _ := tensor.Allocate(tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{1}}})
	b, _ := tensor.Allocate(tensor.Infos{
		{Type: tensor.Int32, Dimension: tensor.Dimension{2}},
		{Type: tensor.Float32, Dimension: tensor.Dimension{3}},
	})
	c, err := tensor.Combine(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Count())
	assert.True(t, c.Infos().Equal(tensor.Infos{a.Infos()[0], b.Infos()[0], b.Infos()[1]}))

	p, err := c.Pick(2, 0)
	require.NoError(t, err)
	assert.Equal(t, "float32[3],uint8[1]", p.Infos().String())
	_, err = c.Pick(3)
	assert.ErrorIs(t, err, tensor.ErrIndexOutOfRange)

	many := make([]*tensor.Data, tensor.SizeLimit+1)
	for i := range many {
		many[i] = a
	}
	_, err = tensor.Combine(many...)
	assert.ErrorIs(t, err, tensor.ErrInvalidDescriptor)
}

func TestParse(t *testing.T) {
	d, err := tensor.ParseDimension("3:224:224:1")
	require.NoError(t, err)
	assert.Equal(t, tensor.Dimension{3, 224, 224, 1}, d)
	assert.Equal(t, "3:224:224:1", d.String())
	assert.True(t, d.Equal(tensor.Dimension{3, 224, 224}))
	assert.False(t, d.Equal(tensor.Dimension{3, 224}))

	for _, s := range []string{"", "3:0", "3:-1", "a:b"} {
		_, err := tensor.ParseDimension(s)
		assert.ErrorIs(t, err, tensor.ErrInvalidDescriptor, s)
	}

	is, err := tensor.ParseInfos("3:224:224:1,10", "uint8, float32")
	require.NoError(t, err)
	assert.Equal(t, "uint8[3:224:224:1],float32[10]", is.String())
	_, err = tensor.ParseInfos("3:224:224:1,10", "uint8")
	assert.ErrorIs(t, err, tensor.ErrInvalidDescriptor)

	typ, err := tensor.ParseType("FLOAT32")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, typ)
	_, err = tensor.ParseType("complex64")
	assert.ErrorIs(t, err, tensor.ErrInvalidDescriptor)
}

func TestValue(t *testing.T) {
	types := []tensor.Type{
		tensor.Int8, tensor.Uint8, tensor.Int16, tensor.Uint16, tensor.Int32,
		tensor.Uint32, tensor.Int64, tensor.Uint64, tensor.Float16,
		tensor.Float32, tensor.Float64,
	}
	for _, typ := range types {
		t.Run(typ.String(), func(t *testing.T) {
			b := make([]byte, typ.Size()*2)
			tensor.SetValue(typ, b, 1, 42)
			assert.Equal(t, float64(42), tensor.Value(typ, b, 1))
			assert.Equal(t, float64(0), tensor.Value(typ, b, 0))
		})
	}

	b := make([]byte, 1)
	tensor.SetValue(tensor.Uint8, b, 0, 300)
	assert.Equal(t, byte(255), b[0])
	tensor.SetValue(tensor.Uint8, b, 0, -5)
	assert.Equal(t, byte(0), b[0])
}
