package pipe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pipelined.dev/tensorpipe/config"
	"pipelined.dev/tensorpipe/element"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/parse"
	"pipelined.dev/tensorpipe/tensor"
)

type (
	// member is an element of the pipeline bound to its graph node.
	member struct {
		*element.Element
		name    string
		node    *runtime.Node
		inputs  []*link // in input order
		outputs []*link // in output order
	}

	// link is a description link with resolved pads.
	link struct {
		from, to       *member
		fromPad, toPad string
		fromNum, toNum int
	}

	source struct {
		*member
		handler    *element.AppSource
		negotiated tensor.Infos
		ended      bool
	}

	sink struct {
		*member
		handler *element.AppSink
		ended   bool
	}

	inputPadSetter interface {
		SetInputPads([]string)
	}

	outputPadSetter interface {
		SetOutputPads([]string)
	}
)

// build creates elements and binds them into the graph. Created elements
// are kept in the pipeline even if build fails, so they can be closed.
func (p *Pipeline) build(d *parse.Description) error {
	for _, e := range d.Elements {
		props := make(map[string]string, len(e.Properties))
		for k, v := range e.Properties {
			if k != "name" {
				props[k] = v
			}
		}
		el, err := element.New(e.Kind, props)
		if err != nil {
			return fmt.Errorf("element %q: %w", e.Name, err)
		}
		m := member{Element: el, name: e.Name}
		p.members[e.Name] = &m
		p.order = append(p.order, &m)
	}
	for _, l := range d.Links {
		lk := link{
			from:    p.members[l.From],
			to:      p.members[l.To],
			fromPad: l.FromPad,
			toPad:   l.ToPad,
		}
		lk.from.outputs = append(lk.from.outputs, &lk)
		lk.to.inputs = append(lk.to.inputs, &lk)
	}
	for _, m := range p.order {
		if err := m.assignPads(); err != nil {
			return err
		}
	}

	for _, m := range p.order {
		m.node = runtime.NewNode(m.name, m.Kind, m.Handler, p.metrics.Meter(p.id, m.name, m.Kind))
		p.graph.Add(m.node)
	}
	// queues of elements go first, so their size is not overridden by
	// branch and fan-in queues
	for _, m := range p.order {
		if m.Queue != nil {
			p.graph.Queue(m.node, m.Queue.Size, m.Queue.Leaky)
		}
	}
	for _, m := range p.order {
		switch m.Variant {
		case element.Mux:
			p.graph.Queue(m.node, int(config.QueueSize()), runtime.NoLeak)
		case element.Tee, element.OutputSelector:
			for _, l := range m.outputs {
				p.graph.Queue(l.to.node, int(config.QueueSize()), runtime.NoLeak)
			}
		}
	}
	for _, m := range p.order {
		for _, l := range m.outputs {
			p.graph.Connect(m.node, l.to.node, l.to.inputIndex(l))
		}
	}
	if err := p.graph.Prepare(); err != nil {
		return err
	}

	for _, m := range p.order {
		if s, ok := m.Handler.(inputPadSetter); ok {
			s.SetInputPads(m.padNames(m.inputs, false))
		}
		if s, ok := m.Handler.(outputPadSetter); ok {
			s.SetOutputPads(m.padNames(m.outputs, true))
		}
		switch h := m.Handler.(type) {
		case *element.AppSource:
			p.sources[m.name] = &source{member: m, handler: h}
		case *element.AppSink:
			s := &sink{member: m, handler: h}
			h.OnEOS = p.sinkEOS(s)
			p.sinks[m.name] = s
		}
	}

	// control reaches element through every source that feeds it
	for _, s := range p.sources {
		for _, m := range p.order {
			if s.node.Reaches(m.node.Context) {
				p.pusher.AddDestination(m.node.Context, s.node.Input())
			}
		}
	}

	for _, s := range p.sources {
		infos := s.handler.Infos()
		if infos == nil {
			continue
		}
		if err := s.node.Negotiate(0, infos); err != nil {
			return fmt.Errorf("source %q caps %v: %w", s.name, infos, err)
		}
		s.negotiated = infos
	}
	return nil
}

// assignPads checks links against pad templates and numbers request
// pads. Outputs are sorted by pad number.
func (m *member) assignPads() error {
	if err := assignPads(m.name, m.Inputs, m.inputs, func(l *link) (*string, *int) { return &l.toPad, &l.toNum }); err != nil {
		return err
	}
	if err := assignPads(m.name, m.Outputs, m.outputs, func(l *link) (*string, *int) { return &l.fromPad, &l.fromNum }); err != nil {
		return err
	}
	sort.SliceStable(m.outputs, func(i, j int) bool {
		return m.outputs[i].fromNum < m.outputs[j].fromNum
	})

	switch {
	case m.Variant == element.Source && len(m.outputs) == 0:
		return fmt.Errorf("%w: source %q is not linked", ErrInvalidLink, m.name)
	case m.Variant != element.Source && len(m.inputs) == 0:
		return fmt.Errorf("%w: %q has no input", ErrInvalidLink, m.name)
	case m.Variant != element.Sink && len(m.outputs) == 0:
		return fmt.Errorf("%w: %q has no output", ErrInvalidLink, m.name)
	}
	return nil
}

func assignPads(name string, pads element.Pads, links []*link, pad func(*link) (*string, *int)) error {
	switch pads.Max {
	case 0:
		if len(links) > 0 {
			padName, _ := pad(links[0])
			return fmt.Errorf("%w: %q has no pad for %q link", ErrInvalidLink, name, *padName)
		}
		return nil
	case 1:
		if len(links) > 1 {
			return fmt.Errorf("%w: %q pad %q is linked %d times", ErrInvalidLink, name, pads.Template, len(links))
		}
		for _, l := range links {
			padName, _ := pad(l)
			if *padName != "" && *padName != pads.Template {
				return fmt.Errorf("%w: %q of %q", ErrUnknownPad, *padName, name)
			}
			*padName = pads.Template
		}
		return nil
	}

	prefix := strings.TrimSuffix(pads.Template, "%d")
	used := make(map[int]bool, len(links))
	for _, l := range links {
		padName, num := pad(l)
		if *padName == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(*padName, prefix))
		if !strings.HasPrefix(*padName, prefix) || err != nil || n < 0 {
			return fmt.Errorf("%w: %q of %q", ErrUnknownPad, *padName, name)
		}
		if used[n] {
			return fmt.Errorf("%w: %q pad %q is linked twice", ErrInvalidLink, name, *padName)
		}
		used[n], *num = true, n
	}
	next := 0
	for _, l := range links {
		padName, num := pad(l)
		if *padName != "" {
			continue
		}
		for used[next] {
			next++
		}
		used[next], *num = true, next
		*padName = pads.Name(next)
	}
	return nil
}

func (m *member) inputIndex(l *link) int {
	for i, in := range m.inputs {
		if in == l {
			return i
		}
	}
	panic(fmt.Sprintf("link to %q is not an input", m.name))
}

func (m *member) padNames(links []*link, out bool) []string {
	names := make([]string, len(links))
	for i, l := range links {
		if out {
			names[i] = l.fromPad
		} else {
			names[i] = l.toPad
		}
	}
	return names
}
