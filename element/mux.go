package element

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"pipelined.dev/tensorpipe/config"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

// SyncMode defines when mux combines buffers.
type SyncMode string

// Supported sync modes.
const (
	// NoSync emits when every pad has a buffer, taking the oldest one of
	// each pad.
	NoSync SyncMode = "nosync"
	// Slowest emits when every pad has a buffer, taking the newest one of
	// each pad and discarding the older ones.
	Slowest SyncMode = "slowest"
	// Refresh emits on every arrival after every pad has seen a buffer,
	// using the latest buffer of each pad.
	Refresh SyncMode = "refresh"
)

type muxConfig struct {
	SyncMode       string `mapstructure:"sync_mode"`
	SyncModeDash   string `mapstructure:"sync-mode"`
	SyncOption     string `mapstructure:"sync_option"`
	SyncOptionDash string `mapstructure:"sync-option"`
	Silent         bool   `mapstructure:"silent"`
}

// TensorMux combines data of all input pads into a single data. Tensors
// are ordered by pad number.
type TensorMux struct {
	mode    SyncMode
	limit   int
	order   []int // input pads ordered by pad number
	pending [][]*tensor.Data
	latest  []*tensor.Data
	eos     []bool

	mu         sync.Mutex
	negotiated []tensor.Infos
	previous   []tensor.Infos // restored by Revert
}

func newMux(c *muxConfig) (*Element, error) {
	mode := SyncMode(strings.ToLower(c.SyncMode))
	if mode == "" {
		mode = SyncMode(strings.ToLower(c.SyncModeDash))
	}
	switch mode {
	case "":
		mode = NoSync
	case NoSync, Slowest, Refresh:
	default:
		return nil, fmt.Errorf("%w: unsupported sync mode %q", ErrInvalidProperty, mode)
	}
	return &Element{
		Handler: &TensorMux{mode: mode, limit: int(config.QueueSize())},
		Inputs:  requestInput,
		Outputs: singleOutput,
	}, nil
}

// SetInputPads sets names of input pads in input order.
func (m *TensorMux) SetInputPads(pads []string) {
	m.order = padOrder(pads)
	m.negotiated = make([]tensor.Infos, len(pads))
	m.previous = make([]tensor.Infos, len(pads))
	m.Reset()
}

// Mode returns sync mode.
func (m *TensorMux) Mode() SyncMode {
	return m.mode
}

// Reset drops collected buffers.
func (m *TensorMux) Reset() {
	m.pending = make([][]*tensor.Data, len(m.order))
	m.latest = make([]*tensor.Data, len(m.order))
	m.eos = make([]bool, len(m.order))
}

func (m *TensorMux) Handle(ctx context.Context, in int, d *tensor.Data, emit runtime.Emitter) error {
	if in < 0 || in >= len(m.order) {
		return fmt.Errorf("%w: input %d of %d", tensor.ErrIndexOutOfRange, in, len(m.order))
	}
	switch m.mode {
	case Refresh:
		m.latest[in] = d
		if !complete(len(m.latest), func(i int) bool { return m.latest[i] != nil }) {
			return nil
		}
		return m.emit(ctx, emit, m.latest)
	case Slowest:
		m.pending[in] = append(m.pending[in], d)
		if !m.ready() {
			return nil
		}
		set := make([]*tensor.Data, len(m.pending))
		for i := range m.pending {
			last := len(m.pending[i]) - 1
			set[i] = m.pending[i][last]
			for range m.pending[i][:last] {
				emit.Drop()
			}
			m.pending[i] = nil
		}
		return m.emit(ctx, emit, set)
	}
	m.pending[in] = append(m.pending[in], d)
	if len(m.pending[in]) > m.limit {
		m.pending[in] = m.pending[in][1:]
		emit.Drop()
	}
	for m.ready() {
		set := make([]*tensor.Data, len(m.pending))
		for i := range m.pending {
			set[i] = m.pending[i][0]
			m.pending[i] = m.pending[i][1:]
		}
		if err := m.emit(ctx, emit, set); err != nil {
			return err
		}
	}
	return nil
}

func (m *TensorMux) ready() bool {
	return complete(len(m.pending), func(i int) bool { return len(m.pending[i]) > 0 })
}

// emit combines set in pad order.
func (m *TensorMux) emit(ctx context.Context, emit runtime.Emitter, set []*tensor.Data) error {
	ordered := make([]*tensor.Data, len(set))
	for n, i := range m.order {
		ordered[n] = set[i]
	}
	d, err := tensor.Combine(ordered...)
	if err != nil {
		return err
	}
	return emit.Emit(ctx, 0, d)
}

func (m *TensorMux) EOS(ctx context.Context, in int, emit runtime.EOSEmitter) error {
	return allEOS(ctx, m.eos, in, emit)
}

// Negotiate combines infos when all input pads are known. Infos are kept
// only if combined infos are valid.
func (m *TensorMux) Negotiate(in int, infos tensor.Infos, _ int) (tensor.Infos, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in < 0 || in >= len(m.negotiated) {
		return nil, nil
	}
	var combined tensor.Infos
	for _, i := range m.order {
		pad := m.negotiated[i]
		if i == in {
			pad = infos
		}
		if pad == nil {
			combined = nil
			break
		}
		combined = append(combined, pad...)
	}
	if combined != nil {
		if err := combined.Validate(); err != nil {
			return nil, err
		}
	}
	m.previous[in], m.negotiated[in] = m.negotiated[in], infos
	return combined, nil
}

// Revert restores infos of input pad in after downstream rejected them.
func (m *TensorMux) Revert(in int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in >= 0 && in < len(m.negotiated) {
		m.negotiated[in] = m.previous[in]
	}
}

type joinConfig struct{}

// Join forwards data of any input pad as soon as it arrives.
type Join struct {
	eos []bool
}

func newJoin(*joinConfig) (*Element, error) {
	return &Element{
		Handler: &Join{},
		Inputs:  requestInput,
		Outputs: singleOutput,
	}, nil
}

// SetInputPads sets names of input pads in input order.
func (j *Join) SetInputPads(pads []string) {
	j.eos = make([]bool, len(pads))
}

// Reset clears end of stream flags.
func (j *Join) Reset() {
	j.eos = make([]bool, len(j.eos))
}

func (j *Join) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	return emit.Emit(ctx, 0, d)
}

func (j *Join) EOS(ctx context.Context, in int, emit runtime.EOSEmitter) error {
	return allEOS(ctx, j.eos, in, emit)
}

// allEOS marks input as ended and emits end of stream once all inputs
// ended.
func allEOS(ctx context.Context, eos []bool, in int, emit runtime.EOSEmitter) error {
	if in < 0 || in >= len(eos) || eos[in] {
		return nil
	}
	eos[in] = true
	if complete(len(eos), func(i int) bool { return eos[i] }) {
		return emit.EmitEOS(ctx)
	}
	return nil
}

func complete(n int, ok func(int) bool) bool {
	for i := 0; i < n; i++ {
		if !ok(i) {
			return false
		}
	}
	return true
}

// padOrder returns input indices sorted by the number in pad name, e.g.
// sink_1 goes before sink_2. Pads without number keep declaration order
// after numbered ones.
func padOrder(pads []string) []int {
	order := make([]int, len(pads))
	for i := range order {
		order[i] = i
	}
	number := func(pad string) (int, bool) {
		i := strings.LastIndexByte(pad, '_')
		if i < 0 {
			return 0, false
		}
		n, err := strconv.Atoi(pad[i+1:])
		return n, err == nil
	}
	sort.SliceStable(order, func(a, b int) bool {
		na, oka := number(pads[order[a]])
		nb, okb := number(pads[order[b]])
		switch {
		case oka && okb:
			return na < nb
		case oka != okb:
			return oka
		}
		return false
	})
	return order
}
