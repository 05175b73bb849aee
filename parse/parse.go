// Package parse turns textual pipeline descriptions into element graphs.
//
// The description follows gst-launch syntax:
//
//	appsrc name=srcx ! other/tensor,dimension=(string)10:1:1:1,type=(string)int32 !
//	    tee name=t t. ! queue ! tensor_sink name=sink1 t. ! valve name=v ! tensor_sink name=sink2
//
// Stages are separated with "!", every stage is either an element with
// key=value properties, a caps filter or a reference to a pad of named
// element. References at the chain start are upstream pads, references
// at the chain end are downstream pads.
package parse

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSyntax is returned when description is malformed.
	ErrSyntax = errors.New("syntax error")
	// ErrUnresolvedReference is returned when description refers to the
	// element that wasn't declared.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrDuplicateName is returned when two elements have the same name.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrUnsupportedElement is returned when element kind is not known.
	ErrUnsupportedElement = errors.New("unsupported element")
)

// CapsFilter is the kind of elements created for caps stages.
const CapsFilter = "capsfilter"

type (
	// Description is a parsed pipeline description.
	Description struct {
		Elements []Element
		Links    []Link
	}

	// Element is a single declared element.
	Element struct {
		Kind       string
		Name       string
		Properties map[string]string
	}

	// Link connects output pad of one element to input pad of another.
	// Empty pad means that element should pick the next free pad.
	Link struct {
		From    string
		FromPad string
		To      string
		ToPad   string
	}

	// KnownFunc reports if element kind is supported.
	KnownFunc func(kind string) bool
)

// endpoint is either a declared element or a reference to the named one.
type endpoint struct {
	element int    // index of declared element, -1 for reference
	ref     string // referenced name
	pad     string
}

type pendingLink struct {
	from, to endpoint
	pos      int
}

type parser struct {
	known    KnownFunc
	elements []Element
	explicit []bool
	links    []pendingLink
}

// Parse parses the description. If known is not nil, every element
// kind is checked with it. Parsing is all-or-nothing: either the full
// description is returned or an error.
func Parse(s string, known KnownFunc) (*Description, error) {
	tokens, err := lex(s)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty description", ErrSyntax)
	}
	p := parser{known: known}
	if err := p.parse(tokens); err != nil {
		return nil, err
	}
	return p.resolve()
}

func (p *parser) parse(tokens []token) error {
	var (
		prev    *endpoint // upstream endpoint of the chain
		current = -1      // element that accepts properties
		linking bool      // "!" was seen
		linkPos int
	)
	for _, t := range tokens {
		switch t.tokenType {
		case linkToken:
			if prev == nil || linking {
				return fmt.Errorf("%w: unexpected \"!\" at %d", ErrSyntax, t.pos)
			}
			linking, linkPos = true, t.pos
			current = -1
		case propertyToken:
			if current < 0 {
				return fmt.Errorf("%w: property %q without element at %d", ErrSyntax, t.text, t.pos)
			}
			key, value, _ := strings.Cut(t.text, "=")
			if key == "" {
				return fmt.Errorf("%w: empty property name at %d", ErrSyntax, t.pos)
			}
			value = unquote(value)
			if key == "name" {
				if value == "" {
					return fmt.Errorf("%w: empty name at %d", ErrSyntax, t.pos)
				}
				p.elements[current].Name = value
				p.explicit[current] = true
			}
			p.elements[current].Properties[key] = value
		case refToken:
			name, pad, _ := strings.Cut(t.text, ".")
			ref := endpoint{element: -1, ref: name, pad: pad}
			if linking {
				p.links = append(p.links, pendingLink{from: *prev, to: ref, pos: linkPos})
				linking, prev = false, nil
			} else {
				if unlinked(prev) {
					return fmt.Errorf("%w: reference %q is not linked at %d", ErrSyntax, prev.ref, t.pos)
				}
				prev = &ref
			}
			current = -1
		case elementToken, capsToken:
			if !linking && unlinked(prev) {
				return fmt.Errorf("%w: reference %q is not linked at %d", ErrSyntax, prev.ref, t.pos)
			}
			e, err := p.element(t)
			if err != nil {
				return err
			}
			ep := endpoint{element: e}
			if linking {
				p.links = append(p.links, pendingLink{from: *prev, to: ep, pos: linkPos})
				linking = false
			}
			prev, current = &ep, e
		}
	}
	if linking {
		return fmt.Errorf("%w: dangling \"!\" at %d", ErrSyntax, linkPos)
	}
	if unlinked(prev) {
		return fmt.Errorf("%w: reference %q is not linked", ErrSyntax, prev.ref)
	}
	return nil
}

// unlinked reports if e is a reference that starts a chain.
func unlinked(e *endpoint) bool {
	return e != nil && e.element < 0
}

func (p *parser) element(t token) (int, error) {
	e := Element{
		Kind:       t.text,
		Properties: map[string]string{},
	}
	if t.tokenType == capsToken {
		e.Kind = CapsFilter
		e.Properties["caps"] = t.text
	}
	if p.known != nil && !p.known(e.Kind) {
		return 0, fmt.Errorf("%w: %q at %d", ErrUnsupportedElement, e.Kind, t.pos)
	}
	p.elements = append(p.elements, e)
	p.explicit = append(p.explicit, false)
	return len(p.elements) - 1, nil
}

// resolve names anonymous elements and resolves references.
func (p *parser) resolve() (*Description, error) {
	names := make(map[string]int, len(p.elements))
	for i := range p.elements {
		if !p.explicit[i] {
			continue
		}
		if _, ok := names[p.elements[i].Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, p.elements[i].Name)
		}
		names[p.elements[i].Name] = i
	}
	counters := map[string]int{}
	for i := range p.elements {
		if p.explicit[i] {
			continue
		}
		kind := p.elements[i].Kind
		for {
			name := fmt.Sprintf("%s%d", kind, counters[kind])
			counters[kind]++
			if _, ok := names[name]; !ok {
				names[name] = i
				p.elements[i].Name = name
				break
			}
		}
	}

	d := Description{
		Elements: p.elements,
		Links:    make([]Link, 0, len(p.links)),
	}
	for _, l := range p.links {
		from, err := p.name(names, l.from)
		if err != nil {
			return nil, err
		}
		to, err := p.name(names, l.to)
		if err != nil {
			return nil, err
		}
		d.Links = append(d.Links, Link{
			From:    from,
			FromPad: l.from.pad,
			To:      to,
			ToPad:   l.to.pad,
		})
	}
	return &d, nil
}

func (p *parser) name(names map[string]int, ep endpoint) (string, error) {
	if ep.element >= 0 {
		return p.elements[ep.element].Name, nil
	}
	if _, ok := names[ep.ref]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedReference, ep.ref)
	}
	return ep.ref, nil
}

// Element returns element with provided name.
func (d *Description) Element(name string) (Element, bool) {
	for _, e := range d.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

// String formats the description back into text. Every link is printed
// as a separate chain.
func (d *Description) String() string {
	var b strings.Builder
	for i, e := range d.Elements {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.String())
	}
	for _, l := range d.Links {
		fmt.Fprintf(&b, " %s.%s ! %s.%s", l.From, l.FromPad, l.To, l.ToPad)
	}
	return b.String()
}

func (e Element) String() string {
	keys := make([]string, 0, len(e.Properties))
	for k := range e.Properties {
		if k != "name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	s := []string{e.Kind, "name=" + e.Name}
	for _, k := range keys {
		v := e.Properties[k]
		if strings.ContainsAny(v, " \t") {
			v = fmt.Sprintf("%q", v)
		}
		s = append(s, k+"="+v)
	}
	return strings.Join(s, " ")
}
