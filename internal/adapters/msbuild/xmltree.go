package msbuild

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// node is one item of the document tree: an element, text, a comment, or
// a processing instruction.
type node interface {
	write(b *bytes.Buffer)
}

type element struct {
	name     string
	attrs    []xml.Attr
	children []node
	parent   *element
}

type text string

type comment string

type procInst struct {
	target string
	inst   string
}

type directive string

// document keeps everything around the root so that saving reproduces the
// original file apart from edits.
type document struct {
	prolog []node
	root   *element
	epilog []node
}

// parseDocument reads XML without resolving namespaces, so prefixes and
// xmlns attributes round-trip unchanged.
func parseDocument(data []byte) (*document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	doc := &document{}
	var cur *element

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var n node
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: qname(t.Name), attrs: copyAttrs(t.Attr), parent: cur}
			switch {
			case cur != nil:
				cur.children = append(cur.children, el)
			case doc.root == nil:
				doc.root = el
			default:
				return nil, errors.New("multiple root elements")
			}
			cur = el
			continue
		case xml.EndElement:
			if cur == nil || cur.name != qname(t.Name) {
				return nil, fmt.Errorf("unexpected closing tag </%s>", qname(t.Name))
			}
			cur = cur.parent
			continue
		case xml.CharData:
			n = text(t)
		case xml.Comment:
			n = comment(t)
		case xml.ProcInst:
			n = procInst{target: t.Target, inst: string(t.Inst)}
		case xml.Directive:
			n = directive(t)
		}

		switch {
		case cur != nil:
			cur.children = append(cur.children, n)
		case doc.root == nil:
			doc.prolog = append(doc.prolog, n)
		default:
			doc.epilog = append(doc.epilog, n)
		}
	}

	if doc.root == nil {
		return nil, errors.New("no root element")
	}
	if cur != nil {
		return nil, fmt.Errorf("unclosed element <%s>", cur.name)
	}
	return doc, nil
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func copyAttrs(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, len(attrs))
	copy(out, attrs)
	return out
}

// Bytes serializes the document.
func (d *document) Bytes() []byte {
	var b bytes.Buffer
	for _, n := range d.prolog {
		n.write(&b)
	}
	d.root.write(&b)
	for _, n := range d.epilog {
		n.write(&b)
	}
	return b.Bytes()
}

func (e *element) write(b *bytes.Buffer) {
	b.WriteByte('<')
	b.WriteString(e.name)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(qname(a.Name))
		b.WriteString(`="`)
		b.WriteString(escape(a.Value, true))
		b.WriteByte('"')
	}
	if len(e.children) == 0 {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')
	for _, c := range e.children {
		c.write(b)
	}
	b.WriteString("</")
	b.WriteString(e.name)
	b.WriteByte('>')
}

func (t text) write(b *bytes.Buffer) {
	b.WriteString(escape(string(t), false))
}

func (c comment) write(b *bytes.Buffer) {
	b.WriteString("<!--")
	b.WriteString(string(c))
	b.WriteString("-->")
}

func (p procInst) write(b *bytes.Buffer) {
	b.WriteString("<?")
	b.WriteString(p.target)
	if p.inst != "" {
		b.WriteByte(' ')
		b.WriteString(p.inst)
	}
	b.WriteString("?>")
}

func (d directive) write(b *bytes.Buffer) {
	b.WriteString("<!")
	b.WriteString(string(d))
	b.WriteByte('>')
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
)

func escape(s string, attr bool) string {
	if attr {
		return attrEscaper.Replace(s)
	}
	return textEscaper.Replace(s)
}

// localName strips a namespace prefix.
func localName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// attr returns the value of the attribute with the given local name.
func (e *element) attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) setAttr(name, value string) {
	for i, a := range e.attrs {
		if strings.EqualFold(a.Name.Local, name) {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// elements returns the child elements with the given local name, or all
// child elements when name is empty.
func (e *element) elements(name string) []*element {
	var out []*element
	for _, c := range e.children {
		el, ok := c.(*element)
		if !ok {
			continue
		}
		if name == "" || strings.EqualFold(localName(el.name), name) {
			out = append(out, el)
		}
	}
	return out
}

// first returns the first child element with the given local name.
func (e *element) first(name string) *element {
	for _, el := range e.elements(name) {
		return el
	}
	return nil
}

// text returns the element's concatenated text content.
func (e *element) text() string {
	var b strings.Builder
	for _, c := range e.children {
		if t, ok := c.(text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

func (e *element) setText(value string) {
	e.children = []node{text(value)}
}

// childIndent guesses the whitespace that precedes child elements.
func (e *element) childIndent(unit string) string {
	for i, c := range e.children {
		if _, ok := c.(*element); !ok || i == 0 {
			continue
		}
		if t, ok := e.children[i-1].(text); ok {
			if ws := trailingLine(string(t)); ws != "" {
				return ws
			}
		}
	}
	return e.indent() + unit
}

// indent returns the whitespace that precedes e itself.
func (e *element) indent() string {
	if e.parent == nil {
		return ""
	}
	for i, c := range e.parent.children {
		if c != node(e) || i == 0 {
			continue
		}
		if t, ok := e.parent.children[i-1].(text); ok {
			return trailingLine(string(t))
		}
	}
	return ""
}

// trailingLine returns the whitespace after the last newline of s.
func trailingLine(s string) string {
	i := strings.LastIndexByte(s, '\n')
	if i < 0 {
		return ""
	}
	ws := s[i+1:]
	if strings.TrimSpace(ws) != "" {
		return ""
	}
	return ws
}

// appendChild adds child as the last element, indented like its siblings.
func (e *element) appendChild(child *element, unit string) {
	child.parent = e
	indent := e.childIndent(unit)

	// Drop the closing whitespace, add ours, then restore it.
	closing := text("\n" + e.indent())
	if n := len(e.children); n > 0 {
		if t, ok := e.children[n-1].(text); ok && strings.TrimSpace(string(t)) == "" {
			closing = t
			e.children = e.children[:n-1]
		}
	}
	e.children = append(e.children, text("\n"+indent), child, closing)
}

// removeChild removes child and the whitespace that precedes it.
func (e *element) removeChild(child *element) bool {
	for i, c := range e.children {
		if c != node(child) {
			continue
		}
		start := i
		if i > 0 {
			if t, ok := e.children[i-1].(text); ok && strings.TrimSpace(string(t)) == "" {
				start = i - 1
			}
		}
		e.children = append(e.children[:start], e.children[i+1:]...)
		child.parent = nil
		return true
	}
	return false
}

// isEmpty reports whether e has no child elements.
func (e *element) isEmpty() bool {
	return len(e.elements("")) == 0
}

func newElement(name string, attrs ...xml.Attr) *element {
	return &element{name: name, attrs: attrs}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}
