package pipe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	pipe "pipelined.dev/tensorpipe"
	"pipelined.dev/tensorpipe/filter"
	"pipelined.dev/tensorpipe/log"
	"pipelined.dev/tensorpipe/metric"
	"pipelined.dev/tensorpipe/mock"
	"pipelined.dev/tensorpipe/tensor"
)

const timeout = 5 * time.Second

func TestMain(m *testing.M) {
	pipe.Initialize()
	goleak.VerifyTestMain(m)
}

func newPipeline(t *testing.T, description string, options ...pipe.Option) *pipe.Pipeline {
	t.Helper()
	options = append([]pipe.Option{pipe.WithLogger(log.Discard()), pipe.WithMetrics(nil)}, options...)
	p, err := pipe.New(description, options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, p.Close())
	})
	return p
}

func sink(t *testing.T, p *pipe.Pipeline, name string) *mock.Sink {
	t.Helper()
	s := &mock.Sink{}
	_, err := p.RegisterSinkCallback(name, s.Callback())
	require.NoError(t, err)
	return s
}

func push(t *testing.T, p *pipe.Pipeline, source string, values ...byte) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, p.Push(source, mock.Data([]byte{v})))
	}
}

func finish(t *testing.T, p *pipe.Pipeline, sources ...string) {
	t.Helper()
	for _, s := range sources {
		require.NoError(t, p.EndOfStream(s))
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func values(s *mock.Sink) []byte {
	var v []byte
	for _, d := range s.Received() {
		v = append(v, mock.Bytes(d)...)
	}
	return v
}

func sequence(from, to int) []byte {
	var s []byte
	for i := from; i < to; i++ {
		s = append(s, byte(i))
	}
	return s
}

func TestPushOrder(t *testing.T) {
	const n = 100
	p := newPipeline(t, "appsrc name=src ! queue ! identity ! tensor_sink name=sink")
	s := sink(t, p, "sink")
	require.NoError(t, p.Start())
	push(t, p, "src", sequence(0, n)...)
	finish(t, p, "src")

	assert.Equal(t, sequence(0, n), values(s))
	received, err := p.Received("sink")
	require.NoError(t, err)
	assert.Equal(t, uint64(n), received)
	assert.NoError(t, p.Err())
}

func TestTee(t *testing.T) {
	const n = 50
	p := newPipeline(t, "appsrc name=src ! tee name=t t. ! queue ! tensor_sink name=sink1 t. ! tensor_sink name=sink2")
	s1, s2 := sink(t, p, "sink1"), sink(t, p, "sink2")
	require.NoError(t, p.Start())
	push(t, p, "src", sequence(0, n)...)
	finish(t, p, "src")

	assert.Equal(t, sequence(0, n), values(s1))
	assert.Equal(t, sequence(0, n), values(s2))
	// branches share the data
	for i := range s1.Received() {
		assert.Same(t, s1.Received()[i], s2.Received()[i])
	}
}

func TestValve(t *testing.T) {
	const n, k = 20, 8
	p := newPipeline(t, "appsrc name=src ! tee name=t t. ! queue ! tensor_sink name=sink1 t. ! queue ! valve name=v ! tensor_sink name=sink2")
	s1, s2 := sink(t, p, "sink1"), sink(t, p, "sink2")
	require.NoError(t, p.Start())
	push(t, p, "src", sequence(0, k)...)
	require.NoError(t, p.ControlValve("v", false))
	push(t, p, "src", sequence(k, n)...)
	finish(t, p, "src")

	assert.Equal(t, sequence(0, n), values(s1))
	assert.Equal(t, sequence(0, k), values(s2))

	assert.ErrorIs(t, p.ControlValve("sink1", true), pipe.ErrUnknownElement)
	assert.ErrorIs(t, p.ControlValve("absent", true), pipe.ErrUnknownElement)
}

func TestValveReopen(t *testing.T) {
	p := newPipeline(t, "appsrc name=src ! valve name=v drop=true ! tensor_sink name=sink")
	s := sink(t, p, "sink")
	// applied immediately while pipeline is not playing
	require.NoError(t, p.ControlValve("v", false))
	require.NoError(t, p.Start())
	push(t, p, "src", 0, 1)
	require.NoError(t, p.ControlValve("v", true))
	push(t, p, "src", 2, 3)
	require.NoError(t, p.ControlValve("v", false))
	push(t, p, "src", 4)
	finish(t, p, "src")

	assert.Equal(t, []byte{2, 3}, values(s))
}

func TestSelector(t *testing.T) {
	const n, k = 20, 5
	p := newPipeline(t, "appsrc name=src ! output-selector name=sel sel.src_0 ! tensor_sink name=a sel.src_1 ! tensor_sink name=b")
	a, b := sink(t, p, "a"), sink(t, p, "b")

	pads, err := p.SwitchPads("sel")
	require.NoError(t, err)
	assert.Equal(t, []string{"src_0", "src_1"}, pads)
	assert.ErrorIs(t, p.SelectSwitchPad("sel", "src_5"), pipe.ErrUnknownPad)

	require.NoError(t, p.Start())
	push(t, p, "src", sequence(0, k)...)
	require.NoError(t, p.SelectSwitchPad("sel", "src_1"))
	push(t, p, "src", sequence(k, n)...)
	finish(t, p, "src")

	assert.Equal(t, sequence(0, k), values(a))
	assert.Equal(t, sequence(k, n), values(b))
}

func TestCondition(t *testing.T) {
	const n, k = 20, 12
	p := newPipeline(t, "appsrc name=src ! tensor_if name=tif compared-value=A_VALUE compared-value-option=0:0:0:0,0 supplied-value=12 operator=LT then=PASSTHROUGH else=PASSTHROUGH tif.src_0 ! tensor_sink name=a tif.src_1 ! queue ! tensor_sink name=b")
	a, b := sink(t, p, "a"), sink(t, p, "b")

	require.NoError(t, p.Start())
	push(t, p, "src", sequence(0, n)...)
	finish(t, p, "src")

	assert.Equal(t, sequence(0, k), values(a))
	assert.Equal(t, sequence(k, n), values(b))
}

func TestMux(t *testing.T) {
	const n = 10
	p := newPipeline(t, "appsrc name=a ! mux.sink_1 appsrc name=b ! mux.sink_0 tensor_mux name=mux sync_mode=nosync ! tensor_sink name=out")
	s := sink(t, p, "out")
	require.NoError(t, p.Start())
	var wg sync.WaitGroup
	for _, src := range []struct {
		name   string
		offset int
	}{{"a", 100}, {"b", 0}} {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				assert.NoError(t, p.Push(src.name, mock.Data([]byte{byte(src.offset + i)})))
			}
		}()
	}
	wg.Wait()
	finish(t, p, "a", "b")

	received := s.Received()
	require.Len(t, received, n)
	for i, d := range received {
		// pad sink_0 goes first
		assert.Equal(t, []byte{byte(i), byte(100 + i)}, mock.Bytes(d))
		assert.Equal(t, 2, d.Count())
	}
}

func TestPassthroughRoundTrip(t *testing.T) {
	infos := tensor.Infos{
		{Type: tensor.Float32, Dimension: tensor.Dimension{3, 2}},
		{Type: tensor.Int16, Dimension: tensor.Dimension{5}},
	}
	f := &mock.Filter{Name: "passthrough-roundtrip", In: infos}
	c, err := f.Register()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})

	p := newPipeline(t, `appsrc name=src caps=other/tensors,num_tensors=2,dimensions="3:2,5",types="float32,int16" ! tensor_filter framework=custom-easy model=passthrough-roundtrip ! tensor_sink name=sink`)
	s := sink(t, p, "sink")
	require.NoError(t, p.Start())

	var pushed [][]byte
	for i := 0; i < 10; i++ {
		d, err := tensor.Allocate(infos)
		require.NoError(t, err)
		for n := 0; n < d.Count(); n++ {
			b, err := d.Tensor(n)
			require.NoError(t, err)
			for j := range b {
				b[j] = byte(i*31 + n*7 + j)
			}
		}
		pushed = append(pushed, mock.Bytes(d))
		require.NoError(t, p.Push("src", d))
	}
	finish(t, p, "src")

	received := s.Received()
	require.Len(t, received, len(pushed))
	for i, d := range received {
		assert.True(t, d.Infos().Equal(infos))
		assert.Equal(t, pushed[i], mock.Bytes(d))
	}
	buffers, _ := f.Count()
	assert.Equal(t, len(pushed), buffers)
}

func TestFilterReferences(t *testing.T) {
	infos := tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{1}}}
	f := &mock.Filter{Name: "referenced", In: infos}
	c, err := f.Register()
	require.NoError(t, err)

	p, err := pipe.New("appsrc ! tensor_filter framework=custom-easy model=referenced ! tensor_sink", pipe.WithLogger(log.Discard()), pipe.WithMetrics(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, c.References())
	assert.ErrorIs(t, filter.Unregister("referenced"), pipe.ErrInUse)

	require.NoError(t, p.Close())
	assert.Equal(t, 0, c.References())
	assert.NoError(t, filter.Unregister("referenced"))
	assert.ErrorIs(t, filter.Unregister("referenced"), pipe.ErrNotRegistered)
}

func TestShapeMismatch(t *testing.T) {
	f := &mock.Filter{Name: "four", In: tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{4}}}}
	c, err := f.Register()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})

	p := newPipeline(t, "appsrc name=src ! tee name=t t. ! queue ! tensor_filter framework=custom-easy model=four ! tensor_sink name=sink t. ! tensor_sink name=other")
	s := sink(t, p, "sink")
	require.NoError(t, p.Start())

	err = p.Push("src", mock.Data([]byte{1, 2}))
	assert.ErrorIs(t, err, pipe.ErrShapeMismatch)
	var ee *pipe.ElementError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "tensor_filter0", ee.Element)

	// pipeline keeps playing
	require.NoError(t, p.Push("src", mock.Data([]byte{1, 2, 3, 4})))
	finish(t, p, "src")
	assert.Equal(t, []byte{1, 2, 3, 4}, values(s))
	assert.NoError(t, p.Err())
}

func TestFilterContract(t *testing.T) {
	infos := tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{1}}}
	f := &mock.Filter{
		Name: "malformed",
		In:   infos,
		Fn: func(in *tensor.Data) (*tensor.Data, error) {
			return mock.Data([]byte{1, 2}), nil
		},
	}
	c, err := f.Register()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})

	var (
		mu     sync.Mutex
		states []pipe.State
		failed error
	)
	p := newPipeline(t, "appsrc name=src ! tensor_filter name=f framework=custom-easy model=malformed ! tensor_sink name=sink",
		pipe.WithStateCallback(func(s pipe.State, err error) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
			if err != nil {
				failed = err
			}
		}),
	)
	s := sink(t, p, "sink")
	require.NoError(t, p.Start())
	push(t, p, "src", 1)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err = p.Wait(ctx)
	assert.ErrorIs(t, err, pipe.ErrShapeMismatch)
	var ee *pipe.ElementError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "f", ee.Element)

	assert.Empty(t, s.Received())
	assert.ErrorIs(t, p.Err(), pipe.ErrShapeMismatch)
	assert.ErrorIs(t, p.Push("src", mock.Data([]byte{1})), pipe.ErrShapeMismatch)
	assert.ErrorIs(t, p.Start(), pipe.ErrShapeMismatch)

	assert.Equal(t, pipe.Paused, p.State())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 2
	}, timeout, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []pipe.State{pipe.Playing, pipe.Paused}, states)
	assert.ErrorIs(t, failed, pipe.ErrShapeMismatch)
}

func TestStates(t *testing.T) {
	var states []pipe.State
	p, err := pipe.New("appsrc name=src ! valve name=v ! output-selector name=sel sel. ! tensor_sink name=sink",
		pipe.WithLogger(log.Discard()),
		pipe.WithMetrics(nil),
		pipe.WithName("states"),
		pipe.WithStateCallback(func(s pipe.State, err error) {
			assert.NoError(t, err)
			states = append(states, s)
		}),
	)
	require.NoError(t, err)
	assert.Contains(t, p.String(), "states")
	assert.Equal(t, pipe.Ready, p.State())
	assert.ErrorIs(t, p.Push("src", mock.Data([]byte{1})), pipe.ErrInvalidState)
	assert.ErrorIs(t, p.EndOfStream("src"), pipe.ErrInvalidState)

	require.NoError(t, p.Start())
	require.NoError(t, p.Start())
	assert.Equal(t, pipe.Playing, p.State())
	require.NoError(t, p.Pause())
	assert.Equal(t, pipe.Paused, p.State())
	require.NoError(t, p.Stop())
	require.NoError(t, p.Start())
	require.NoError(t, p.Close())
	assert.Equal(t, pipe.Null, p.State())
	require.NoError(t, p.Close())

	assert.Equal(t, []pipe.State{pipe.Playing, pipe.Paused, pipe.Playing, pipe.Null}, states)
	assert.ErrorIs(t, p.Start(), pipe.ErrInvalidState)
	assert.ErrorIs(t, p.Pause(), pipe.ErrInvalidState)
	assert.ErrorIs(t, p.Push("src", mock.Data([]byte{1})), pipe.ErrInvalidState)
	assert.ErrorIs(t, p.ControlValve("v", false), pipe.ErrInvalidState)
	assert.ErrorIs(t, p.SelectSwitchPad("sel", "src_0"), pipe.ErrInvalidState)
	assert.ErrorIs(t, p.Wait(context.Background()), pipe.ErrInvalidState)
	_, err = p.RegisterSinkCallback("sink", func(*tensor.Data) {})
	assert.ErrorIs(t, err, pipe.ErrInvalidState)
}

func TestRestart(t *testing.T) {
	p := newPipeline(t, "appsrc name=src ! tensor_sink name=sink")
	s := sink(t, p, "sink")
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Start())
		push(t, p, "src", byte(i))
		finish(t, p, "src")
		assert.ErrorIs(t, p.Push("src", mock.Data([]byte{1})), pipe.ErrInvalidState)
		require.NoError(t, p.Stop())
	}
	assert.Equal(t, []byte{0, 1, 2}, values(s))
}

func TestSinkCallbacks(t *testing.T) {
	p := newPipeline(t, "appsrc name=src ! tensor_sink name=sink")
	var calls []string
	first, err := p.RegisterSinkCallback("sink", func(*tensor.Data) { calls = append(calls, "first") })
	require.NoError(t, err)
	_, err = p.RegisterSinkCallback("sink", func(*tensor.Data) { calls = append(calls, "second") })
	require.NoError(t, err)

	_, err = p.RegisterSinkCallback("src", func(*tensor.Data) {})
	assert.ErrorIs(t, err, pipe.ErrUnknownElement)
	_, err = p.RegisterSinkCallback("sink", nil)
	assert.Error(t, err)

	require.NoError(t, p.Start())
	push(t, p, "src", 1)
	require.NoError(t, p.UnregisterSinkCallback("sink", first))
	assert.ErrorIs(t, p.UnregisterSinkCallback("sink", first), pipe.ErrUnknownCallback)
	assert.ErrorIs(t, p.UnregisterSinkCallback("absent", first), pipe.ErrUnknownElement)
	push(t, p, "src", 2)
	finish(t, p, "src")

	// the first buffer could reach the sink after unregistration
	assert.Contains(t, [][]string{
		{"first", "second", "second"},
		{"second", "second"},
	}, calls)
}

func TestPushErrors(t *testing.T) {
	p := newPipeline(t, `appsrc name=src caps="other/tensor,dimension=(string)2:1,type=(string)uint8" ! tensor_sink name=sink`)
	require.NoError(t, p.Start())
	assert.ErrorIs(t, p.Push("sink", mock.Data([]byte{1, 2})), pipe.ErrUnknownElement)
	assert.ErrorIs(t, p.Push("src", mock.Data([]byte{1})), pipe.ErrShapeMismatch)
	assert.ErrorIs(t, p.Push("src", nil), pipe.ErrInvalidDescriptor)
	assert.ErrorIs(t, p.EndOfStream("absent"), pipe.ErrUnknownElement)
	require.NoError(t, p.Push("src", mock.Data([]byte{1, 2})))
	require.NoError(t, p.EndOfStream("src"))
	require.NoError(t, p.EndOfStream("src"))
	assert.ErrorIs(t, p.Push("src", mock.Data([]byte{1, 2})), pipe.ErrInvalidState)

	infos, err := p.SourceInfos("src")
	require.NoError(t, err)
	assert.Equal(t, "uint8[2:1]", infos.String())
	assert.Equal(t, []string{"src"}, p.Sources())
	assert.Equal(t, []string{"sink"}, p.Sinks())
}

func TestPauseUnblocksPush(t *testing.T) {
	p := newPipeline(t, "appsrc name=src max-buffers=1 ! tensor_sink name=sink")
	entered, release := make(chan struct{}), make(chan struct{})
	var once sync.Once
	_, err := p.RegisterSinkCallback("sink", func(*tensor.Data) {
		once.Do(func() { close(entered) })
		<-release
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	push(t, p, "src", 1)
	<-entered
	push(t, p, "src", 2)

	blocked := make(chan error)
	go func() {
		blocked <- p.Push("src", mock.Data([]byte{3}))
	}()
	paused := make(chan error)
	go func() {
		paused <- p.Pause()
	}()
	assert.ErrorIs(t, <-blocked, pipe.ErrInvalidState)
	close(release)
	assert.NoError(t, <-paused)
	assert.Equal(t, pipe.Paused, p.State())
}

func TestStateChangeFromCallback(t *testing.T) {
	tests := []struct {
		name     string
		change   func(*pipe.Pipeline) error
		expected pipe.State
	}{
		{"stop", (*pipe.Pipeline).Stop, pipe.Paused},
		{"pause", (*pipe.Pipeline).Pause, pipe.Paused},
		{"close", (*pipe.Pipeline).Close, pipe.Null},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := newPipeline(t, "appsrc name=src ! tensor_sink name=sink")
			changed := make(chan error, 1)
			var once sync.Once
			_, err := p.RegisterSinkCallback("sink", func(*tensor.Data) {
				once.Do(func() { changed <- test.change(p) })
			})
			require.NoError(t, err)
			require.NoError(t, p.Start())
			push(t, p, "src", 1)

			select {
			case err := <-changed:
				assert.NoError(t, err)
			case <-time.After(timeout):
				t.Fatal("state change from callback is blocked")
			}
			assert.Equal(t, test.expected, p.State())
		})
	}
}

func TestNewErrors(t *testing.T) {
	f := &mock.Filter{Name: "two", In: tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{2}}}}
	c, err := f.Register()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})

	tests := []struct {
		name        string
		description string
		err         error
	}{
		{"syntax", "appsrc ! ! tensor_sink", pipe.ErrSyntax},
		{"undeclared reference", "appsrc ! tensor_sink t. ! tensor_sink", pipe.ErrUnresolvedReference},
		{"duplicate name", "appsrc name=a ! tensor_sink name=a", pipe.ErrDuplicateName},
		{"unsupported element", "appsrc ! videoscale ! tensor_sink", pipe.ErrUnsupportedElement},
		{"invalid caps", `appsrc caps="other/tensor,dimension=(string)0:2,type=(string)uint8" ! tensor_sink`, pipe.ErrInvalidDescriptor},
		{"invalid property", "appsrc ! valve drop=sometimes ! tensor_sink", pipe.ErrInvalidProperty},
		{"unknown property", "appsrc ! tee color=red ! tensor_sink", pipe.ErrInvalidProperty},
		{"unknown model", "appsrc ! tensor_filter framework=custom-easy model=absent ! tensor_sink", pipe.ErrNotRegistered},
		{"caps mismatch", `appsrc caps="other/tensor,dimension=(string)3,type=(string)uint8" ! tensor_filter framework=custom-easy model=two ! tensor_sink`, pipe.ErrShapeMismatch},
		{"caps filter mismatch", `appsrc caps="other/tensor,dimension=(string)3,type=(string)uint8" ! other/tensor,dimension=(string)2,type=(string)uint8 ! tensor_sink`, pipe.ErrShapeMismatch},
		{"unknown pad", "appsrc ! tee name=t t.foo ! tensor_sink", pipe.ErrUnknownPad},
		{"unknown sink pad", "appsrc ! s.src tensor_sink name=s", pipe.ErrUnknownPad},
		{"single pad linked twice", "appsrc name=a ! tensor_sink name=s appsrc name=b ! s.", pipe.ErrInvalidLink},
		{"request pad linked twice", "appsrc name=a ! j.sink_0 appsrc name=b ! j.sink_0 join name=j ! tensor_sink", pipe.ErrInvalidLink},
		{"no output", "appsrc ! tee", pipe.ErrInvalidLink},
		{"no input", "appsrc ! tensor_sink identity ! tensor_sink", pipe.ErrInvalidLink},
		{"sink output", "appsrc ! tensor_sink ! tensor_sink", pipe.ErrInvalidLink},
		{"cycle", "appsrc ! join name=j ! identity ! j.", pipe.ErrCycle},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := pipe.New(test.description, pipe.WithLogger(log.Discard()), pipe.WithMetrics(nil))
			assert.ErrorIs(t, err, test.err)
			assert.Nil(t, p)
			assert.Equal(t, 0, c.References())
		})
	}
}

func TestShutdown(t *testing.T) {
	p, err := pipe.New("appsrc name=src ! tensor_sink", pipe.WithLogger(log.Discard()), pipe.WithMetrics(nil))
	require.NoError(t, err)
	require.NoError(t, p.Start())

	require.NoError(t, pipe.Shutdown())
	require.NoError(t, pipe.Shutdown())
	assert.Equal(t, pipe.Null, p.State())
	_, err = pipe.New("appsrc ! tensor_sink")
	assert.ErrorIs(t, err, pipe.ErrNotInitialized)

	pipe.Initialize()
	pipe.Initialize()
	p, err = pipe.New("appsrc ! tensor_sink", pipe.WithLogger(log.Discard()), pipe.WithMetrics(nil))
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metric.New(reg)
	require.NoError(t, err)
	p := newPipeline(t, "appsrc name=src ! tensor_sink name=sink", pipe.WithMetrics(m))
	require.NoError(t, p.Start())
	push(t, p, "src", 1, 2, 3)
	finish(t, p, "src")

	families, err := reg.Gather()
	require.NoError(t, err)
	var buffers float64
	for _, f := range families {
		if f.GetName() != "tensorpipe_buffers_total" {
			continue
		}
		for _, s := range f.GetMetric() {
			for _, l := range s.GetLabel() {
				if l.GetName() == metric.ElementLabel && l.GetValue() == "sink" {
					buffers = s.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(3), buffers)
}

func TestErrorTypes(t *testing.T) {
	err := error(&pipe.ElementError{Element: "f", Err: pipe.ErrShapeMismatch})
	assert.True(t, errors.Is(err, tensor.ErrShapeMismatch))
	assert.Contains(t, err.Error(), `"f"`)
}
