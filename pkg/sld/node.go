package sld

import (
	"encoding/xml"
	"io"
	"strings"
)

// XML namespaces used by SLD 1.0 and 1.1 documents.
const (
	NamespaceSLD = "http://www.opengis.net/sld"
	NamespaceSE  = "http://www.opengis.net/se"
	NamespaceOGC = "http://www.opengis.net/ogc"
)

// knownSpaces lists the element namespaces a lookup accepts. The empty space
// covers unprefixed documents; bare prefixes cover documents that use sld:,
// se: or ogc: without declaring them.
var knownSpaces = map[string]bool{
	"":           true,
	NamespaceSLD: true,
	NamespaceSE:  true,
	NamespaceOGC: true,
	"sld":        true,
	"se":         true,
	"ogc":        true,
}

// Node is one element of a parsed document.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Local returns the element name without namespace.
func (n *Node) Local() string { return n.Name.Local }

// Value returns the element's character data with surrounding space removed.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

// Attr returns the value of the attribute with the given local name,
// ignoring namespace declarations.
func (n *Node) Attr(local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attrs {
		if a.Name.Local == local && a.Name.Space != "xmlns" {
			return a.Value
		}
	}
	return ""
}

// Is reports whether n has the given local name in an SLD, SE, OGC or empty
// namespace.
func (n *Node) Is(local string) bool {
	return n != nil && n.Name.Local == local && knownSpaces[n.Name.Space]
}

// =============================================================================
// Queries
// =============================================================================

// Child returns the first direct child matching path, where path is a
// slash-separated list of local names ("Fill/SvgParameter").
func (n *Node) Child(path string) *Node {
	if n == nil {
		return nil
	}
	cur := n
	for _, step := range strings.Split(path, "/") {
		cur = cur.firstChild(step)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ChildrenNamed returns every direct child with the given local name.
func (n *Node) ChildrenNamed(local string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Is(local) {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first match of path in document order. The first step
// may match at any depth below n; later steps must be direct children.
func (n *Node) Find(path string) *Node {
	var found *Node
	n.walkPath(path, func(m *Node) bool {
		found = m
		return false
	})
	return found
}

// FindAll returns every match of path in document order, with the same
// matching rules as Find.
func (n *Node) FindAll(path string) []*Node {
	var out []*Node
	n.walkPath(path, func(m *Node) bool {
		out = append(out, m)
		return true
	})
	return out
}

// Walk calls fn for n and each descendant in document order until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

func (n *Node) walkPath(path string, fn func(*Node) bool) {
	if n == nil || path == "" {
		return
	}
	first, rest, _ := strings.Cut(path, "/")
	for _, c := range n.Children {
		cont := c.Walk(func(d *Node) bool {
			if !d.Is(first) {
				return true
			}
			if rest == "" {
				return fn(d)
			}
			for _, m := range d.childPath(rest) {
				if !fn(m) {
					return false
				}
			}
			return true
		})
		if !cont {
			return
		}
	}
}

// childPath resolves a slash-separated path of direct children, fanning out
// over every matching child at each step.
func (n *Node) childPath(path string) []*Node {
	level := []*Node{n}
	for _, step := range strings.Split(path, "/") {
		var next []*Node
		for _, p := range level {
			next = append(next, p.ChildrenNamed(step)...)
		}
		if len(next) == 0 {
			return nil
		}
		level = next
	}
	return level
}

func (n *Node) firstChild(local string) *Node {
	for _, c := range n.Children {
		if c.Is(local) {
			return c
		}
	}
	return nil
}

// =============================================================================
// Tree Construction
// =============================================================================

// buildTree decodes text into a Node tree. In lenient mode the decoder runs
// non-strict, so unclosed and mismatched tags are closed automatically, and a
// syntax error after the root element has opened keeps the partial tree.
func buildTree(text string, lenient bool) (*Node, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = !lenient
	// Text is UTF-8 by the time it gets here, whatever the prolog declares.
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if lenient && root != nil {
				break
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			t.Name.Space = strings.TrimSpace(t.Name.Space)
			node := &Node{Name: t.Name, Attrs: t.Attr}
			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			case root == nil:
				root = node
			case lenient:
				return root, nil
			default:
				line, _ := d.InputPos()
				return nil, &xml.SyntaxError{Msg: "multiple root elements", Line: line}
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, &xml.SyntaxError{Msg: "no root element", Line: 1}
	}
	return root, nil
}
