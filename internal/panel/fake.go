package panel

import (
	"sync"

	"pixelcast/internal/pixel"
)

// Fake is an in-memory device. It backs the "null" driver and the tests.
type Fake struct {
	mu         sync.Mutex
	fb         Framebuffer
	swaps      int
	brightness int
	closed     bool
	last       []byte

	// Set to make the next calls fail.
	SwapErr       error
	BrightnessErr error
}

func NewFake(width, height int) *Fake {
	stride := width * pixel.BytesPerPixel
	return &Fake{
		fb: Framebuffer{
			Pix:           make([]byte, stride*height),
			Width:         width,
			Height:        height,
			Stride:        stride,
			BytesPerPixel: pixel.BytesPerPixel,
		},
		brightness: 255,
	}
}

func (f *Fake) MapFramebuffer() Framebuffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fb
}

func (f *Fake) Swap() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.SwapErr != nil {
		return f.SwapErr
	}
	f.swaps++
	f.last = append(f.last[:0], f.fb.Pix...)
	return nil
}

func (f *Fake) SetBrightness(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BrightnessErr != nil {
		return f.BrightnessErr
	}
	f.brightness = v
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Swaps counts successful presents.
func (f *Fake) Swaps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.swaps
}

func (f *Fake) Brightness() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brightness
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Presented returns the pixel at (x, y) of the last swapped frame.
func (f *Fake) Presented(x, y int) pixel.RGB {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := y*f.fb.Stride + x*f.fb.BytesPerPixel
	if x < 0 || y < 0 || x >= f.fb.Width || y >= f.fb.Height || o+2 >= len(f.last) {
		return pixel.Black
	}
	return pixel.RGB{R: f.last[o], G: f.last[o+1], B: f.last[o+2]}
}
