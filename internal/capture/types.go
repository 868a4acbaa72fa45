// Package capture defines the immutable artifact model shared by all analysis
// engines: keypad layout captures, form submission captures, and reference
// image dimensions.
//
// Artifacts are constructed once from raw captured bytes and never mutated.
// The engines compare frozen snapshots, so constructors validate up front and
// fail instead of returning partially filled artifacts.
package capture

import "fmt"

// Box is an axis-aligned rectangle in pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Translated returns the box shifted by (dx, dy).
func (b Box) Translated(dx, dy int) Box {
	return Box{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Within reports whether the box lies entirely inside a w x h area
// anchored at the origin.
func (b Box) Within(w, h int) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X2 <= w && b.Y2 <= h && b.X1 <= b.X2 && b.Y1 <= b.Y2
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// ImageDimensions describes a captured reference image. The sprite packs
// every keypad page into Total bounds; only Visible bounds are rendered on
// screen at a time.
type ImageDimensions struct {
	TotalWidth    int `json:"total_width"`
	TotalHeight   int `json:"total_height"`
	VisibleWidth  int `json:"visible_width"`
	VisibleHeight int `json:"visible_height"`
}

// Valid reports whether all dimensions are positive and the visible area
// does not exceed the total area.
func (d ImageDimensions) Valid() bool {
	return d.TotalWidth > 0 && d.TotalHeight > 0 &&
		d.VisibleWidth > 0 && d.VisibleHeight > 0 &&
		d.VisibleWidth <= d.TotalWidth && d.VisibleHeight <= d.TotalHeight
}

// MaskClass is the coarse character-category hint the protocol reveals
// alongside each button token. It is a single character supplied on the
// wire, not derived locally.
type MaskClass string

// Known mask classes observed in the protocol.
const (
	MaskLower   MaskClass = "a"
	MaskUpper   MaskClass = "A"
	MaskDigit   MaskClass = "1"
	MaskSpecial MaskClass = "$"
)

// Valid reports whether the mask class is a single character.
func (m MaskClass) Valid() bool { return len(m) == 1 }

// Describe returns a human-readable name for the class, or "unknown".
func (m MaskClass) Describe() string {
	switch m {
	case MaskLower:
		return "lowercase"
	case MaskUpper:
		return "uppercase"
	case MaskDigit:
		return "digit"
	case MaskSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// ButtonEntry is one keypad key as observed in a layout capture.
//
// Token is an opaque correlation key. It is a fixed-length hexadecimal
// string but carries no assumed mathematical structure; whether it has any
// is exactly what the consistency checks are meant to surface.
type ButtonEntry struct {
	// LayoutID identifies which keyboard page the button belongs to
	// (lowercase, uppercase, special, ...).
	LayoutID string `json:"layout_id"`

	// Token is the opaque identifier assigned by the protocol.
	Token string `json:"token"`

	// Mask is the character-class hint transmitted with the token.
	Mask MaskClass `json:"mask"`

	// RenderBox is the button's position in the visible rendered keypad.
	RenderBox Box `json:"render_box"`

	// SourceBox is the button's position in the underlying sprite image,
	// relative to the page it belongs to.
	SourceBox Box `json:"source_box"`
}
