package filter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/tensorpipe/filter"
	"pipelined.dev/tensorpipe/tensor"
)

var (
	uint8x4   = tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{4}}}
	float32x2 = tensor.Infos{{Type: tensor.Float32, Dimension: tensor.Dimension{2}}}
)

func passthrough(in *tensor.Data) (*tensor.Data, error) {
	return in, nil
}

func TestRegister(t *testing.T) {
	c, err := filter.Register("register", uint8x4, uint8x4, passthrough)
	require.NoError(t, err)
	assert.Equal(t, "register", c.Name())
	assert.True(t, c.Input().Equal(uint8x4))
	assert.Contains(t, filter.Registered(), "register")

	_, err = filter.Register("register", uint8x4, uint8x4, passthrough)
	assert.ErrorIs(t, err, filter.ErrNameAlreadyRegistered)

	require.NoError(t, c.Close())
	assert.NotContains(t, filter.Registered(), "register")
	assert.ErrorIs(t, c.Close(), filter.ErrNotRegistered)
	assert.ErrorIs(t, filter.Unregister("register"), filter.ErrNotRegistered)

	// name can be reused after close
	_, err = filter.Register("register", uint8x4, uint8x4, passthrough)
	require.NoError(t, err)
	require.NoError(t, filter.Unregister("register"))
}

func TestRegisterInvalid(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		in, out tensor.Infos
		fn      filter.Func
	}{
		{name: "empty name", in: uint8x4, out: uint8x4, fn: passthrough},
		{name: "nil func", filter: "nil-func", in: uint8x4, out: uint8x4},
		{name: "no input", filter: "no-input", out: uint8x4, fn: passthrough},
		{name: "zero dimension", filter: "zero", in: uint8x4, out: tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{0}}}, fn: passthrough},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := filter.Register(test.filter, test.in, test.out, test.fn)
			assert.Error(t, err)
			assert.Nil(t, c)
			assert.NotContains(t, filter.Registered(), test.filter)
		})
	}
}

func TestInUse(t *testing.T) {
	c, err := filter.Register("in-use", uint8x4, uint8x4, passthrough)
	require.NoError(t, err)

	m1, err := filter.Open(filter.CustomEasy, "in-use", nil)
	require.NoError(t, err)
	m2, err := filter.Open(filter.CustomEasy, "in-use", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.References())

	assert.ErrorIs(t, filter.Unregister("in-use"), filter.ErrInUse)
	require.NoError(t, m1.Close())
	require.NoError(t, m1.Close())
	assert.ErrorIs(t, c.Close(), filter.ErrInUse)
	require.NoError(t, m2.Close())
	assert.Equal(t, 0, c.References())
	assert.NoError(t, c.Close())

	_, err = filter.Open(filter.CustomEasy, "in-use", nil)
	assert.ErrorIs(t, err, filter.ErrNotRegistered)
}

func TestInvokeContract(t *testing.T) {
	tests := []struct {
		name string
		in   tensor.Infos
		fn   filter.Func
		err  error
	}{
		{
			name: "passthrough",
			in:   uint8x4,
			fn:   passthrough,
		},
		{
			name: "wrong input",
			in:   float32x2,
			fn:   passthrough,
			err:  tensor.ErrShapeMismatch,
		},
		{
			name: "wrong output",
			in:   uint8x4,
			fn: func(*tensor.Data) (*tensor.Data, error) {
				return tensor.Allocate(float32x2)
			},
			err: tensor.ErrShapeMismatch,
		},
		{
			name: "no output",
			in:   uint8x4,
			fn: func(*tensor.Data) (*tensor.Data, error) {
				return nil, nil
			},
			err: tensor.ErrShapeMismatch,
		},
		{
			name: "failure",
			in:   uint8x4,
			fn: func(*tensor.Data) (*tensor.Data, error) {
				return nil, errFailure
			},
			err: errFailure,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := filter.Register("contract", uint8x4, uint8x4, test.fn)
			require.NoError(t, err)
			defer c.Close()

			m, err := filter.Open(filter.CustomEasy, "contract", nil)
			require.NoError(t, err)
			defer m.Close()

			in, err := tensor.Allocate(test.in)
			require.NoError(t, err)
			out, err := m.Invoke(in)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			assert.Same(t, in, out)
		})
	}
}

var errFailure = errors.New("failure")

type constModel struct {
	infos  tensor.Infos
	closed *bool
}

func (m constModel) Input() tensor.Infos  { return m.infos }
func (m constModel) Output() tensor.Infos { return m.infos }
func (m constModel) Close() error {
	*m.closed = true
	return nil
}

func (m constModel) Invoke(in *tensor.Data) (*tensor.Data, error) {
	return in.Clone(), nil
}

func TestFramework(t *testing.T) {
	var closed bool
	fw := filter.FrameworkFunc(func(model string, props map[string]string) (filter.Model, error) {
		if model != "const" {
			return nil, errFailure
		}
		return constModel{infos: uint8x4, closed: &closed}, nil
	})
	require.NoError(t, filter.RegisterFramework("const-framework", fw))
	defer filter.UnregisterFramework("const-framework")
	assert.ErrorIs(t, filter.RegisterFramework("const-framework", fw), filter.ErrNameAlreadyRegistered)
	assert.Contains(t, filter.Frameworks(), filter.CustomEasy)

	_, err := filter.Open("const-framework", "other", nil)
	assert.ErrorIs(t, err, errFailure)
	_, err = filter.Open("unknown-framework", "const", nil)
	assert.ErrorIs(t, err, filter.ErrNotRegistered)

	m, err := filter.Open("const-framework", "const", nil)
	require.NoError(t, err)
	assert.True(t, m.Output().Equal(uint8x4))
	require.NoError(t, m.Close())
	assert.True(t, closed)

	assert.ErrorIs(t, filter.UnregisterFramework(filter.CustomEasy), filter.ErrNotRegistered)
}
