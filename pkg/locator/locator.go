// Package locator finds text markers in uiautomator dumps and resolves
// them to screen coordinates.
package locator

import (
	"strconv"
	"strings"

	"github.com/devicelab-dev/msgrelay/pkg/core"
)

// nodeDelimiter separates element fragments in a single-line dump.
const nodeDelimiter = "><node"

// Locator resolves markers against one dump. Implementations must not keep
// state between calls; a result is only valid for the dump it came from.
type Locator interface {
	// Element returns the last element in scan order whose fragment
	// contains marker and carries well-formed bounds. fromBottom scans the
	// dump from its end, so the match nearest the top of the dump wins;
	// WeChat lists the newest album picture there.
	Element(dump core.ScreenDump, marker string, fromBottom bool) (core.UIElement, bool)

	// Text returns the attribute values that follow subLabel in every
	// fragment containing label, newline-joined, or only the first one when
	// readAll is false.
	Text(dump core.ScreenDump, label, subLabel string, readAll bool) string
}

// New returns the locator registered under name ("text" or "tree").
// Unknown names fall back to the text locator.
func New(name string) Locator {
	switch strings.ToLower(name) {
	case "tree":
		return TreeLocator{}
	default:
		return TextLocator{}
	}
}

// FindCoordinates returns the tap point for marker using the text locator.
func FindCoordinates(dump core.ScreenDump, marker string, fromBottom bool) (core.Point, bool) {
	el, ok := TextLocator{}.Element(dump, marker, fromBottom)
	if !ok {
		return core.Point{}, false
	}
	return el.Center, true
}

// FindText reads attribute values using the text locator.
func FindText(dump core.ScreenDump, label, subLabel string, readAll bool) string {
	return TextLocator{}.Text(dump, label, subLabel, readAll)
}

// TextLocator treats the dump as plain text: it splits on the node
// delimiter and matches markers as literal substrings. A marker that also
// appears inside an unrelated attribute will match that element too.
type TextLocator struct{}

// Element implements Locator.
func (TextLocator) Element(dump core.ScreenDump, marker string, fromBottom bool) (core.UIElement, bool) {
	var (
		found core.UIElement
		ok    bool
	)
	fragments := Fragments(dump.Raw)
	for i := range fragments {
		frag := fragments[i]
		if fromBottom {
			frag = fragments[len(fragments)-1-i]
		}
		if !strings.Contains(frag, marker) {
			continue
		}
		bounds, err := BoundsOf(frag)
		if err != nil {
			continue
		}
		found, ok = core.UIElement{Marker: marker, Bounds: bounds, Center: bounds.Center()}, true
	}
	return found, ok
}

// Text implements Locator.
func (TextLocator) Text(dump core.ScreenDump, label, subLabel string, readAll bool) string {
	var values []string
	for _, frag := range Fragments(dump.Raw) {
		if !strings.Contains(frag, label) {
			continue
		}
		pieces := strings.Split(frag, `"`)
		for i, piece := range pieces {
			if !strings.Contains(piece, subLabel) || i+1 >= len(pieces) {
				continue
			}
			if !readAll {
				return pieces[i+1]
			}
			values = append(values, pieces[i+1])
		}
	}
	return strings.Join(values, "\n")
}

// Fragments splits a dump into per-element fragments.
func Fragments(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, nodeDelimiter)
}

// BoundsOf extracts and parses the bounds="[x0,y0][x1,y1]" attribute of a
// fragment.
func BoundsOf(fragment string) (core.Rect, error) {
	const attr = `bounds="`
	start := strings.Index(fragment, attr)
	if start < 0 {
		return core.Rect{}, core.ErrMalformedBounds.WithMessage("no bounds attribute")
	}
	value := fragment[start+len(attr):]
	end := strings.IndexByte(value, '"')
	if end < 0 {
		return core.Rect{}, core.ErrMalformedBounds.WithMessage("unterminated bounds attribute")
	}
	return ParseBounds(value[:end])
}

// ParseBounds parses "[x0,y0][x1,y1]".
func ParseBounds(s string) (core.Rect, error) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return core.Rect{}, core.ErrMalformedBounds.WithDetails(map[string]interface{}{"bounds": s})
	}
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Rect{}, core.ErrMalformedBounds.WithDetails(map[string]interface{}{"bounds": s})
	}

	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return core.Rect{}, core.ErrMalformedBounds.WithCause(err)
		}
		n[i] = v
	}
	return core.Rect{X0: n[0], Y0: n[1], X1: n[2], Y1: n[3]}, nil
}
