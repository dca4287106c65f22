package panel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"pixelcast/internal/pixel"
)

// Terminal previews the panel on a truecolor terminal. Each character cell
// shows two pixel rows with an upper half block: foreground is the top
// pixel, background the bottom one.
type Terminal struct {
	mu         sync.Mutex
	out        *bufio.Writer
	fb         Framebuffer
	brightness int
	altScreen  bool
	closed     bool
}

func init() {
	Register("terminal", DriverFunc(func(cfg Config) (Device, error) {
		fd := int(os.Stdout.Fd())
		isTTY := term.IsTerminal(fd)
		if isTTY {
			cols, rows, err := term.GetSize(fd)
			if err == nil && (cols < cfg.Width || rows < (cfg.Height+1)/2) {
				log.Warn().Int("cols", cols).Int("rows", rows).
					Int("width", cfg.Width).Int("height", cfg.Height).
					Msg("Terminal smaller than panel, preview will be clipped")
			}
		}
		return NewTerminal(os.Stdout, cfg.Width, cfg.Height, isTTY), nil
	}))
}

// NewTerminal draws into out. altScreen switches to the alternate screen
// and hides the cursor until Close.
func NewTerminal(out io.Writer, width, height int, altScreen bool) *Terminal {
	stride := width * pixel.BytesPerPixel
	t := &Terminal{
		out: bufio.NewWriterSize(out, 64*1024),
		fb: Framebuffer{
			Pix:           make([]byte, stride*height),
			Width:         width,
			Height:        height,
			Stride:        stride,
			BytesPerPixel: pixel.BytesPerPixel,
		},
		brightness: 255,
		altScreen:  altScreen,
	}
	if altScreen {
		t.out.WriteString("\x1b[?1049h\x1b[?25l\x1b[2J")
	}
	return t
}

func (t *Terminal) MapFramebuffer() Framebuffer { return t.fb }

func (t *Terminal) Swap() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	t.out.WriteString("\x1b[H")
	for y := 0; y < t.fb.Height; y += 2 {
		var lastFg, lastBg [3]byte
		first := true
		for x := 0; x < t.fb.Width; x++ {
			fg := t.rgb(x, y)
			bg := t.rgb(x, y+1)
			if first || fg != lastFg {
				fmt.Fprintf(t.out, "\x1b[38;2;%d;%d;%dm", fg[0], fg[1], fg[2])
				lastFg = fg
			}
			if first || bg != lastBg {
				fmt.Fprintf(t.out, "\x1b[48;2;%d;%d;%dm", bg[0], bg[1], bg[2])
				lastBg = bg
			}
			first = false
			t.out.WriteString("▀")
		}
		t.out.WriteString("\x1b[0m\r\n")
	}
	return t.out.Flush()
}

func (t *Terminal) rgb(x, y int) [3]byte {
	if y >= t.fb.Height {
		return [3]byte{}
	}
	o := y*t.fb.Stride + x*t.fb.BytesPerPixel
	return [3]byte{t.fb.Pix[o], t.fb.Pix[o+1], t.fb.Pix[o+2]}
}

// SetBrightness is recorded only; the terminal shows what Copy wrote.
func (t *Terminal) SetBrightness(v int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brightness = v
	return nil
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.out.WriteString("\x1b[0m")
	if t.altScreen {
		t.out.WriteString("\x1b[?25h\x1b[?1049l")
	}
	return t.out.Flush()
}
