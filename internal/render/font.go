package render

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Font adapts a tinyfont bitmap font to layout.Metrics and draws lines
// onto any drivers.Displayer.
type Font struct {
	face tinyfont.Fonter
}

// DefaultFont is the 3x5 TomThumb font, which fits four lines of text under
// the overlay band on a 64 pixel panel.
func DefaultFont() *Font {
	return NewFont(&tinyfont.TomThumb)
}

func NewFont(face tinyfont.Fonter) *Font {
	return &Font{face: face}
}

func (f *Font) Width(s string) int {
	_, outbox := tinyfont.LineWidth(f.face, s)
	return int(outbox)
}

func (f *Font) LineHeight() int {
	return int(f.face.GetYAdvance())
}

// Ascent is the distance from the top of a line to its baseline.
func (f *Font) Ascent() int {
	return max(1, f.LineHeight()-1)
}

// TomThumb has no glyph for U+2026.
func (f *Font) Ellipsis() string {
	return "..."
}

// DrawLine writes s with its baseline at y.
func (f *Font) DrawLine(d drivers.Displayer, x, baseline int, s string, c color.RGBA) {
	tinyfont.WriteLine(d, f.face, int16(x), int16(baseline), s, c)
}
