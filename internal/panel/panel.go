// Package panel is the boundary to the LED matrix driver: a device exposes
// one mappable RGB framebuffer and a swap that presents it.
package panel

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pixelcast/internal/pixel"
)

var (
	ErrUnknownDriver = errors.New("panel: unknown driver")
	ErrClosed        = errors.New("panel: device closed")
)

// Config carries the geometry and electrical hints passed to Open.
type Config struct {
	Width      int
	Height     int
	AddrLines  int
	Lanes      int
	Brightness int // 0..255, applied in software by Copy
	FPSHint    int // 0 lets the driver choose
}

// Framebuffer is the driver-owned buffer the render loop writes into.
type Framebuffer struct {
	Pix           []byte
	Width         int
	Height        int
	Stride        int
	BytesPerPixel int
}

// Device is an opened panel.
type Device interface {
	MapFramebuffer() Framebuffer
	Swap() error
	SetBrightness(v int) error
	Close() error
}

// Driver opens devices.
type Driver interface {
	Open(cfg Config) (Device, error)
}

// DriverFunc adapts a plain function to Driver.
type DriverFunc func(cfg Config) (Device, error)

func (f DriverFunc) Open(cfg Config) (Device, error) { return f(cfg) }

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a driver available to Open by name.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}

// Drivers lists registered names.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open looks up a registered driver and opens it.
func Open(name string, cfg Config) (Device, error) {
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("panel: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	dev, err := d.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s panel: %w", name, err)
	}
	return dev, nil
}

func init() {
	Register("null", DriverFunc(func(cfg Config) (Device, error) {
		return NewFake(cfg.Width, cfg.Height), nil
	}))
}

// Copy writes src into fb row by row, scaling every channel by
// brightness/255. Pixels outside either surface are skipped.
func Copy(fb Framebuffer, src *pixel.Grid, brightness int) {
	if src == nil {
		return
	}
	b := max(0, min(255, brightness))
	bpp := fb.BytesPerPixel
	if bpp < pixel.BytesPerPixel {
		return
	}
	w, h := min(fb.Width, src.Width), min(fb.Height, src.Height)
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+w*pixel.BytesPerPixel]
		row := y * fb.Stride
		for x := 0; x < w; x++ {
			o := row + x*bpp
			if o+2 >= len(fb.Pix) {
				return
			}
			r, g, bl := in[x*3], in[x*3+1], in[x*3+2]
			if b != 255 {
				r = uint8(int(r) * b / 255)
				g = uint8(int(g) * b / 255)
				bl = uint8(int(bl) * b / 255)
			}
			fb.Pix[o], fb.Pix[o+1], fb.Pix[o+2] = r, g, bl
		}
	}
}

// FlushBlack zeroes the framebuffer and presents it frames times with delay
// between swaps, so double-buffered panels end up dark on both buffers.
func FlushBlack(dev Device, frames int, delay time.Duration) error {
	for i := 0; i < frames; i++ {
		fb := dev.MapFramebuffer()
		clear(fb.Pix)
		if err := dev.Swap(); err != nil {
			return fmt.Errorf("blank panel: %w", err)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}
