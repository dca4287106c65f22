// Package pixel holds the RGB drawing surface shared by the compositor,
// the text renderer and the panel copy.
package pixel

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// BytesPerPixel is fixed: every grid is packed RGB888.
const BytesPerPixel = 3

var ErrGeometry = errors.New("pixel: invalid grid geometry")

// RGB is one packed pixel.
type RGB struct {
	R, G, B uint8
}

var (
	Black = RGB{}
	White = RGB{255, 255, 255}
)

// RGBA implements color.Color; every RGB is opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return uint32(c.R) * 0x101, uint32(c.G) * 0x101, uint32(c.B) * 0x101, 0xffff
}

func toRGB(c color.Color) RGB {
	if rgb, ok := c.(RGB); ok {
		return rgb
	}
	r, g, b, _ := c.RGBA()
	return RGB{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

// Model converts any colour to RGB, dropping alpha after premultiplication.
var Model = color.ModelFunc(func(c color.Color) color.Color { return toRGB(c) })

// Grid is a row-major RGB buffer. Stride is in bytes and may exceed Width*3.
type Grid struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// New allocates a tightly packed grid.
func New(width, height int) *Grid {
	g, _ := NewStride(width, height, width*BytesPerPixel)
	return g
}

// NewStride allocates a grid whose rows start every stride bytes.
func NewStride(width, height, stride int) (*Grid, error) {
	if width < 0 || height < 0 || stride < width*BytesPerPixel {
		return nil, ErrGeometry
	}
	return &Grid{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, height*stride),
	}, nil
}

func (g *Grid) offset(x, y int) int {
	return y*g.Stride + x*BytesPerPixel
}

// In reports whether (x, y) lies inside the grid.
func (g *Grid) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// SetRGB writes one pixel; out-of-range coordinates are ignored.
func (g *Grid) SetRGB(x, y int, c RGB) {
	if !g.In(x, y) {
		return
	}
	i := g.offset(x, y)
	g.Pix[i] = c.R
	g.Pix[i+1] = c.G
	g.Pix[i+2] = c.B
}

// RGBAt returns the pixel at (x, y), black when out of range.
func (g *Grid) RGBAt(x, y int) RGB {
	if !g.In(x, y) {
		return Black
	}
	i := g.offset(x, y)
	return RGB{g.Pix[i], g.Pix[i+1], g.Pix[i+2]}
}

// The next four methods make a grid a draw.Image, so the x/image scalers
// can read from and write into it directly.

func (g *Grid) ColorModel() color.Model { return Model }

func (g *Grid) Bounds() image.Rectangle { return image.Rect(0, 0, g.Width, g.Height) }

func (g *Grid) At(x, y int) color.Color { return g.RGBAt(x, y) }

func (g *Grid) Set(x, y int, c color.Color) { g.SetRGB(x, y, toRGB(c)) }

var _ draw.Image = (*Grid)(nil)

// FillRect paints a rectangle clipped to the grid.
func (g *Grid) FillRect(x, y, w, h int, c RGB) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, g.Width), min(y+h, g.Height)
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			g.SetRGB(xx, yy, c)
		}
	}
}

// Fill paints the whole grid.
func (g *Grid) Fill(c RGB) {
	g.FillRect(0, 0, g.Width, g.Height, c)
}

// Clear zeroes every byte, padding included.
func (g *Grid) Clear() {
	clear(g.Pix)
}

// The three methods below satisfy tinygo.org/x/drivers.Displayer so the
// tinyfont renderer can draw glyphs straight into a grid.

// Size returns the grid dimensions.
func (g *Grid) Size() (int16, int16) {
	return int16(g.Width), int16(g.Height)
}

// SetPixel writes an RGBA colour, dropping alpha.
func (g *Grid) SetPixel(x, y int16, c color.RGBA) {
	g.SetRGB(int(x), int(y), RGB{c.R, c.G, c.B})
}

// Display is a no-op; presenting is the panel's job.
func (g *Grid) Display() error {
	return nil
}

// FromImage converts any decoded image into a packed grid.
func FromImage(img image.Image) *Grid {
	b := img.Bounds()
	g := New(b.Dx(), b.Dy())
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
