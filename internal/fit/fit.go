// Package fit places a source image inside a destination rectangle using
// one of six strategies, sampling nearest-neighbour.
package fit

import (
	"fmt"
	"math"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"pixelcast/internal/pixel"
)

// Mode is a placement strategy.
type Mode int

const (
	Cover   Mode = iota // scale to fill, crop the overflow
	Contain             // scale to fit, keep margins
	Stretch             // fill both axes independently
	Center              // native size, centred, clipped
	Tile                // native size, repeated from the origin
	None                // native size at the origin, clipped
)

var modeNames = [...]string{"cover", "contain", "stretch", "center", "tile", "none"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the lower-case mode names.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fit mode %q", s)
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Intersect returns the overlap of r and o, empty when they do not touch.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Op copies Src onto Dst, scaling when the sizes differ.
type Op struct {
	Src Rect
	Dst Rect
}

// Plan computes the blit operations that place a srcW x srcH image into dst.
// Every Dst lies inside dst.
func Plan(srcW, srcH int, dst Rect, mode Mode) []Op {
	if srcW <= 0 || srcH <= 0 || dst.Empty() {
		return nil
	}
	full := Rect{W: srcW, H: srcH}

	switch mode {
	case Cover:
		scale := math.Max(float64(dst.W)/float64(srcW), float64(dst.H)/float64(srcH))
		visW := clamp(int(math.Round(float64(dst.W)/scale)), 1, srcW)
		visH := clamp(int(math.Round(float64(dst.H)/scale)), 1, srcH)
		src := Rect{X: (srcW - visW) / 2, Y: (srcH - visH) / 2, W: visW, H: visH}
		return []Op{{Src: src, Dst: dst}}

	case Contain:
		scale := math.Min(float64(dst.W)/float64(srcW), float64(dst.H)/float64(srcH))
		newW := clamp(int(math.Round(float64(srcW)*scale)), 1, dst.W)
		newH := clamp(int(math.Round(float64(srcH)*scale)), 1, dst.H)
		out := Rect{X: dst.X + (dst.W-newW)/2, Y: dst.Y + (dst.H-newH)/2, W: newW, H: newH}
		return []Op{{Src: full, Dst: out}}

	case Stretch:
		return []Op{{Src: full, Dst: dst}}

	case Center:
		at := Rect{X: dst.X + (dst.W-srcW)/2, Y: dst.Y + (dst.H-srcH)/2, W: srcW, H: srcH}
		return clipNative(at, dst)

	case Tile:
		var ops []Op
		for y := dst.Y; y < dst.Y+dst.H; y += srcH {
			for x := dst.X; x < dst.X+dst.W; x += srcW {
				ops = append(ops, clipNative(Rect{X: x, Y: y, W: srcW, H: srcH}, dst)...)
			}
		}
		return ops

	case None:
		return clipNative(Rect{X: dst.X, Y: dst.Y, W: srcW, H: srcH}, dst)
	}
	return nil
}

// clipNative clips an unscaled placement to bounds, trimming the source by
// the same amount.
func clipNative(at, bounds Rect) []Op {
	vis := at.Intersect(bounds)
	if vis.Empty() {
		return nil
	}
	src := Rect{X: vis.X - at.X, Y: vis.Y - at.Y, W: vis.W, H: vis.H}
	return []Op{{Src: src, Dst: vis}}
}

// Blit draws src into dst inside area according to mode. Pixels outside
// either area or the grid are left untouched.
func Blit(dst, src *pixel.Grid, area Rect, mode Mode) {
	if dst == nil || src == nil {
		return
	}
	for _, op := range Plan(src.Width, src.Height, area, mode) {
		draw.NearestNeighbor.Scale(dst, op.Dst.image(), src, op.Src.image(), draw.Src, nil)
	}
}

func (r Rect) image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
