package locator

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/devicelab-dev/msgrelay/pkg/core"
)

// Node is one element of a parsed dump. Fragment holds the element's
// attributes re-serialized as ` name="value"` pairs in source order, so
// markers written for the text locator match the same way.
type Node struct {
	Class    string
	Attrs    []xml.Attr
	Fragment string
	Depth    int
}

// Attr returns the value of the named attribute.
func (n Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ParseNodes walks the hierarchy of a dump in document order.
// Text after the closing hierarchy tag (uiautomator's trailing status line)
// is ignored.
func ParseNodes(raw string) ([]Node, error) {
	if idx := strings.LastIndex(raw, "</hierarchy>"); idx >= 0 {
		raw = raw[:idx+len("</hierarchy>")]
	}
	decoder := xml.NewDecoder(strings.NewReader(raw))

	var nodes []Node
	foundHierarchy := false
	depth := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(nodes) == 0 {
				return nil, err
			}
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "hierarchy" {
				foundHierarchy = true
				continue
			}
			nodes = append(nodes, newNode(t, depth))
			depth++
		case xml.EndElement:
			if t.Name.Local != "hierarchy" {
				depth--
			}
		}
	}

	if !foundHierarchy {
		return nil, errors.New("invalid dump: no hierarchy element found")
	}
	return nodes, nil
}

func newNode(t xml.StartElement, depth int) Node {
	n := Node{Class: t.Name.Local, Attrs: t.Attr, Depth: depth}
	var sb strings.Builder
	for _, a := range t.Attr {
		if a.Name.Local == "class" {
			n.Class = a.Value
		}
		sb.WriteString(" ")
		sb.WriteString(a.Name.Local)
		sb.WriteString(`="`)
		sb.WriteString(a.Value)
		sb.WriteString(`"`)
	}
	n.Fragment = sb.String()
	return n
}

// TreeLocator parses the dump as XML. Attribute values are compared after
// entity decoding, so a marker like `text="A&amp;B"` must be written
// `text="A&B"` here.
type TreeLocator struct{}

// Element implements Locator.
func (TreeLocator) Element(dump core.ScreenDump, marker string, fromBottom bool) (core.UIElement, bool) {
	nodes, err := ParseNodes(dump.Raw)
	if err != nil {
		return core.UIElement{}, false
	}
	var (
		found core.UIElement
		ok    bool
	)
	for i := range nodes {
		n := nodes[i]
		if fromBottom {
			n = nodes[len(nodes)-1-i]
		}
		if !strings.Contains(n.Fragment, marker) {
			continue
		}
		value, has := n.Attr("bounds")
		if !has {
			continue
		}
		bounds, err := ParseBounds(value)
		if err != nil {
			continue
		}
		found, ok = core.UIElement{Marker: marker, Bounds: bounds, Center: bounds.Center()}, true
	}
	return found, ok
}

// Text implements Locator. subLabel is matched against ` name=` of each
// attribute.
func (TreeLocator) Text(dump core.ScreenDump, label, subLabel string, readAll bool) string {
	nodes, err := ParseNodes(dump.Raw)
	if err != nil {
		return ""
	}
	var values []string
	for _, n := range nodes {
		if !strings.Contains(n.Fragment, label) {
			continue
		}
		for _, a := range n.Attrs {
			if !strings.Contains(" "+a.Name.Local+"=", subLabel) {
				continue
			}
			if !readAll {
				return a.Value
			}
			values = append(values, a.Value)
		}
	}
	return strings.Join(values, "\n")
}
