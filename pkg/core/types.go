// Package core provides the shared value types and errors for msgrelay.
package core

import (
	"fmt"
	"time"
)

// Point is a screen coordinate in device pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Rect is an element's bounds as reported by uiautomator: [X0,Y0][X1,Y1].
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Center returns the midpoint of the rectangle
func (r Rect) Center() Point {
	return Point{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}

// Contains checks if a point is within the bounds
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X < r.X1 && p.Y >= r.Y0 && p.Y < r.Y1
}

// Size is the display size of a device.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ScreenDump is the raw uiautomator dump text for one capture.
// A dump reflects the screen at CapturedAt only and must not be reused
// after an action has been sent to the device.
type ScreenDump struct {
	Raw        string    `json:"raw"`
	CapturedAt time.Time `json:"capturedAt"`
}

// UIElement is an element resolved from one ScreenDump.
type UIElement struct {
	Marker string `json:"marker"`
	Bounds Rect   `json:"bounds"`
	Center Point  `json:"center"`
}
