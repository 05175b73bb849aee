package pipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/tensorpipe/element"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/log"
	"pipelined.dev/tensorpipe/metric"
	"pipelined.dev/tensorpipe/mutable"
	"pipelined.dev/tensorpipe/parse"
	"pipelined.dev/tensorpipe/tensor"
)

// Pipeline is a graph of elements built from the description.
type Pipeline struct {
	id      string
	name    string
	log     log.Logger
	metrics *metric.Metrics
	onState StateFunc

	graph   runtime.Graph
	members map[string]*member
	order   []*member
	sources map[string]*source
	sinks   map[string]*sink
	pusher  mutable.Pusher

	// transitions serializes state changes, which wait for workers
	// without holding mu.
	transitions sync.Mutex

	mu     sync.Mutex
	state  State
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{} // closed when workers are done
	ended  int           // sinks that received end of stream
	eos    chan struct{} // closed when all sinks received end of stream
	err    error
	failed chan struct{}
	closed chan struct{}
}

// New parses the description and builds the pipeline. Either a fully
// built pipeline in Ready state is returned or an error.
func New(description string, options ...Option) (*Pipeline, error) {
	p := Pipeline{
		id:      xid.New().String(),
		metrics: metric.Default(),
		members: make(map[string]*member),
		sources: make(map[string]*source),
		sinks:   make(map[string]*sink),
		pusher:  mutable.NewPusher(),
		state:   Ready,
		eos:     make(chan struct{}),
		failed:  make(chan struct{}),
		closed:  make(chan struct{}),
	}
	for _, option := range options {
		option(&p)
	}
	if p.log == nil {
		p.log = log.GetLogger()
	}
	p.log = p.log.WithFields(logrus.Fields{"pipe": p.id, "name": p.name})

	lifecycle.Lock()
	initialized := lifecycle.initialized
	lifecycle.Unlock()
	if !initialized {
		return nil, ErrNotInitialized
	}

	d, err := parse.Parse(description, element.Known)
	if err == nil {
		err = p.build(d)
	}
	if err == nil && !track(&p) {
		err = ErrNotInitialized
	}
	if err != nil {
		p.closeElements()
		p.metrics.Delete(p.id)
		return nil, err
	}
	p.log.WithField("elements", len(p.order)).Debug("pipeline created")
	return &p, nil
}

// ID returns unique id of the pipeline.
func (p *Pipeline) ID() string {
	return p.id
}

// Convert pipeline to string. Name is included if has value.
func (p *Pipeline) String() string {
	if p.name == "" {
		return p.id
	}
	return fmt.Sprintf("%v %v", p.name, p.id)
}

// State returns current state of the pipeline.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error that stopped the pipeline, if any. Pipeline that
// failed can't be started again.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Start starts processing. Queued data of previous runs is discarded.
// Starting playing pipeline does nothing.
func (p *Pipeline) Start() error {
	p.transitions.Lock()
	defer p.transitions.Unlock()

	p.mu.Lock()
	switch {
	case p.state == Null:
		p.mu.Unlock()
		return errClosed
	case p.err != nil:
		err := p.err
		p.mu.Unlock()
		return fmt.Errorf("pipeline failed: %w", err)
	case p.state == Playing:
		p.mu.Unlock()
		return nil
	}
	p.graph.Reset()
	for _, s := range p.sources {
		s.ended = false
	}
	for _, s := range p.sinks {
		s.ended = false
	}
	p.ended = 0
	p.eos = make(chan struct{})
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	go p.run(p.ctx, p.cancel, p.done)
	p.state = Playing
	p.mu.Unlock()

	p.notify(Playing, nil)
	return nil
}

// run executes the graph until it's stopped or failed.
func (p *Pipeline) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	err := p.graph.Run(ctx)
	if err == nil {
		return
	}
	cancel()
	p.mu.Lock()
	if p.err == nil {
		p.err = err
		close(p.failed)
	}
	changed := p.state == Playing
	if changed {
		p.state = Paused
	}
	p.mu.Unlock()

	p.log.WithError(err).Error("pipeline failed")
	if changed {
		p.notify(Paused, err)
	}
}

// Pause stops processing. Data that is queued or processed at the moment
// is discarded. Pause doesn't wait for running sink callbacks, so it can
// be called from them.
func (p *Pipeline) Pause() error {
	p.transitions.Lock()
	defer p.transitions.Unlock()

	p.mu.Lock()
	if p.state == Null {
		p.mu.Unlock()
		return errClosed
	}
	changed := p.state != Paused
	p.state = Paused
	p.mu.Unlock()

	p.wait()
	p.mu.Lock()
	p.graph.Reset()
	p.mu.Unlock()

	if changed {
		p.notify(Paused, nil)
	}
	return nil
}

// Stop is the same as Pause.
func (p *Pipeline) Stop() error {
	return p.Pause()
}

// Close stops the pipeline and releases all resources: workers, filter
// references and models. Closed pipeline can't be used anymore. Closing
// closed pipeline does nothing.
func (p *Pipeline) Close() error {
	p.transitions.Lock()
	defer p.transitions.Unlock()

	p.mu.Lock()
	if p.state == Null {
		p.mu.Unlock()
		return nil
	}
	p.state = Null
	close(p.closed)
	p.mu.Unlock()

	p.wait()
	untrack(p)
	err := p.closeElements()
	p.metrics.Delete(p.id)
	p.notify(Null, nil)
	return err
}

// wait cancels workers and waits until they are done.
func (p *Pipeline) wait() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Pipeline) closeElements() error {
	var errs execErrors
	for _, m := range p.order {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", m.name, err))
		}
	}
	return errs.ret()
}

func (p *Pipeline) notify(s State, err error) {
	p.log.WithField("state", s).Debug("state changed")
	if p.onState != nil {
		p.onState(s, err)
	}
}

var errClosed = fmt.Errorf("%w: pipeline is closed", ErrInvalidState)

// playing returns error if pipeline doesn't accept data. Must be called
// with mu held.
func (p *Pipeline) playing() error {
	switch {
	case p.err != nil:
		return fmt.Errorf("pipeline failed: %w", p.err)
	case p.state != Playing:
		return fmt.Errorf("%w: pipeline is %v", ErrInvalidState, p.state)
	}
	return nil
}

// Push sends data into the source. It blocks only while the source
// queue is full. Data that doesn't match the source caps or the
// elements downstream is rejected with ErrShapeMismatch.
func (p *Pipeline) Push(name string, d *tensor.Data) error {
	if d == nil {
		return fmt.Errorf("%w: nil data", ErrInvalidDescriptor)
	}
	p.mu.Lock()
	if err := p.playing(); err != nil {
		p.mu.Unlock()
		return err
	}
	s, ok := p.sources[name]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: source %q", ErrUnknownElement, name)
	}
	if s.ended {
		p.mu.Unlock()
		return fmt.Errorf("%w: source %q ended", ErrInvalidState, name)
	}
	if !s.negotiated.Equal(d.Infos()) {
		if err := s.node.Negotiate(0, d.Infos()); err != nil {
			p.mu.Unlock()
			return err
		}
		s.negotiated = d.Infos()
	}
	ctx, q := p.ctx, s.node.Input()
	p.mu.Unlock()

	if err := q.Push(ctx, runtime.Message{Data: d}); err != nil {
		return p.interrupted(err)
	}
	return nil
}

// interrupted returns the reason why blocked push was interrupted.
func (p *Pipeline) interrupted(err error) error {
	if !errors.Is(err, context.Canceled) {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return fmt.Errorf("pipeline failed: %w", p.err)
	}
	return fmt.Errorf("%w: pipeline stopped", ErrInvalidState)
}

// EndOfStream marks the end of data of the source. Source doesn't
// accept data after that until pipeline is restarted.
func (p *Pipeline) EndOfStream(name string) error {
	p.mu.Lock()
	if err := p.playing(); err != nil {
		p.mu.Unlock()
		return err
	}
	s, ok := p.sources[name]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: source %q", ErrUnknownElement, name)
	}
	if s.ended {
		p.mu.Unlock()
		return nil
	}
	s.ended = true
	ctx, q := p.ctx, s.node.Input()
	p.mu.Unlock()

	if err := q.Push(ctx, runtime.Message{EOS: true}); err != nil {
		return p.interrupted(err)
	}
	return nil
}

// Wait blocks until every sink received end of stream, pipeline failed
// or closed, or context is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Null {
		p.mu.Unlock()
		return errClosed
	}
	eos := p.eos
	p.mu.Unlock()

	select {
	case <-eos:
		return nil
	case <-p.failed:
		return p.Err()
	case <-p.closed:
		return errClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) sinkEOS(s *sink) func() {
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if s.ended {
			return
		}
		s.ended = true
		p.ended++
		if p.ended == len(p.sinks) {
			close(p.eos)
		}
	}
}

// RegisterSinkCallback adds the callback to the sink. Callbacks are
// called in registration order, one data at a time. Callback may pause,
// stop or close the pipeline.
func (p *Pipeline) RegisterSinkCallback(name string, fn element.CallbackFunc) (element.CallbackID, error) {
	if fn == nil {
		return 0, errors.New("nil sink callback")
	}
	s, err := p.sink(name)
	if err != nil {
		return 0, err
	}
	return s.handler.Register(fn), nil
}

// UnregisterSinkCallback removes the callback. Callback that is running
// at the moment completes.
func (p *Pipeline) UnregisterSinkCallback(name string, id element.CallbackID) error {
	s, err := p.sink(name)
	if err != nil {
		return err
	}
	if !s.handler.Unregister(id) {
		return fmt.Errorf("%w: %d of sink %q", ErrUnknownCallback, id, name)
	}
	return nil
}

func (p *Pipeline) sink(name string) (*sink, error) {
	if p.State() == Null {
		return nil, errClosed
	}
	s, ok := p.sinks[name]
	if !ok {
		return nil, fmt.Errorf("%w: sink %q", ErrUnknownElement, name)
	}
	return s, nil
}

// ControlValve opens or closes the valve. The change applies to data
// pushed after the call.
func (p *Pipeline) ControlValve(name string, open bool) error {
	m, ok := p.members[name]
	if !ok {
		return fmt.Errorf("%w: valve %q", ErrUnknownElement, name)
	}
	v, ok := m.Handler.(*element.ValveHandler)
	if !ok {
		return fmt.Errorf("%w: %q is %s, not valve", ErrUnknownElement, name, m.Kind)
	}
	p.log.WithFields(logrus.Fields{"element": name, "open": open}).Debug("control valve")
	return p.control(m.node.Mutate(func() {
		v.SetOpen(open)
	}))
}

// SelectSwitchPad makes the output pad of the selector active. The
// change applies to data pushed after the call.
func (p *Pipeline) SelectSwitchPad(name, pad string) error {
	s, m, err := p.selector(name)
	if err != nil {
		return err
	}
	i, ok := s.PadIndex(pad)
	if !ok {
		return fmt.Errorf("%w: %q of %q", ErrUnknownPad, pad, name)
	}
	p.log.WithFields(logrus.Fields{"element": name, "pad": pad}).Debug("switch pad")
	return p.control(m.node.Mutate(func() {
		s.SetActive(i)
	}))
}

// SwitchPads returns output pads of the selector.
func (p *Pipeline) SwitchPads(name string) ([]string, error) {
	s, _, err := p.selector(name)
	if err != nil {
		return nil, err
	}
	return s.Pads(), nil
}

func (p *Pipeline) selector(name string) (*element.Selector, *member, error) {
	m, ok := p.members[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: selector %q", ErrUnknownElement, name)
	}
	s, ok := m.Handler.(*element.Selector)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q is %s, not output-selector", ErrUnknownElement, name, m.Kind)
	}
	return s, m, nil
}

// control delivers mutation in order with data. If pipeline is not
// playing or no source feeds the element, mutation is applied
// immediately.
func (p *Pipeline) control(m mutable.Mutation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Null {
		return errClosed
	}
	if p.state != Playing || p.pusher.Destinations(m.Context) == 0 {
		m.Apply()
		return nil
	}
	if err := p.pusher.Put(m); err != nil {
		return err
	}
	return p.pusher.Push(p.ctx)
}

// Sources returns sorted names of sources.
func (p *Pipeline) Sources() []string {
	names := make([]string, 0, len(p.sources))
	for name := range p.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sinks returns sorted names of sinks.
func (p *Pipeline) Sinks() []string {
	names := make([]string, 0, len(p.sinks))
	for name := range p.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SourceInfos returns infos declared with source caps. Nil is returned
// if source accepts any infos.
func (p *Pipeline) SourceInfos(name string) (tensor.Infos, error) {
	s, ok := p.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: source %q", ErrUnknownElement, name)
	}
	return s.handler.Infos(), nil
}

// Received returns number of buffers that reached the sink.
func (p *Pipeline) Received(name string) (uint64, error) {
	s, ok := p.sinks[name]
	if !ok {
		return 0, fmt.Errorf("%w: sink %q", ErrUnknownElement, name)
	}
	return s.handler.Received(), nil
}
