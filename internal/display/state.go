// Package display owns what a display client is currently showing and for
// how long.
package display

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog"

	"pixelcast/handlers"
	"pixelcast/internal/logger"
	"pixelcast/internal/pixel"
)

var ErrBadImage = errors.New("display: unusable image payload")

// Content is what a non-idle state shows. Idle is a nil Content.
type Content interface {
	content()
}

type TextContent struct {
	Text string
}

type ImageContent struct {
	Name string
	Grid *pixel.Grid
}

func (TextContent) content()  {}
func (ImageContent) content() {}

type Mode int

const (
	ModeIdle Mode = iota
	ModeText
	ModeImage
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeImage:
		return "image"
	default:
		return "idle"
	}
}

// State is a snapshot of the machine.
type State struct {
	Content   Content
	ExpiresAt time.Time
}

func (s State) Mode() Mode {
	switch s.Content.(type) {
	case TextContent:
		return ModeText
	case ImageContent:
		return ModeImage
	default:
		return ModeIdle
	}
}

// ImageDecoder turns encoded bytes into pixels.
type ImageDecoder func(data []byte) (*pixel.Grid, error)

// MaxImagePixels bounds the decoded size of an image payload. Headers are
// checked before any pixel buffer is allocated.
const MaxImagePixels = 4096 * 4096

// DecodeImage decodes PNG or JPEG bytes no larger than MaxImagePixels.
func DecodeImage(data []byte) (*pixel.Grid, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxImagePixels/cfg.Height {
		return nil, fmt.Errorf("image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, MaxImagePixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return pixel.FromImage(img), nil
}

// Machine is the Idle/Text/Image state machine. It is owned by the render
// loop and is not safe for concurrent use.
type Machine struct {
	now    func() time.Time
	decode ImageDecoder
	state  State
	log    zerolog.Logger
}

// NewMachine builds an idle machine. Nil arguments select the wall clock
// and DecodeImage.
func NewMachine(now func() time.Time, decode ImageDecoder) *Machine {
	if now == nil {
		now = time.Now
	}
	if decode == nil {
		decode = DecodeImage
	}
	return &Machine{
		now:    now,
		decode: decode,
		log:    logger.With("display"),
	}
}

// Apply feeds one decoded message. A text or image message always replaces
// the current content. An image that cannot be used forces Idle and returns
// ErrBadImage. Roster messages do not touch the state.
func (m *Machine) Apply(msg handlers.DisplayMessage) error {
	ttl := time.Duration(max(1, min(msg.TTLMs, handlers.MaxTTLMs))) * time.Millisecond

	switch msg.Kind {
	case handlers.KindText:
		m.state = State{Content: TextContent{Text: msg.Text}, ExpiresAt: m.now().Add(ttl)}
		m.log.Debug().Int("len", len(msg.Text)).Dur("ttl", ttl).Msg("Showing text")
		return nil

	case handlers.KindImage:
		grid, err := m.decodePayload(msg)
		if err != nil {
			m.state = State{}
			m.log.Warn().Err(err).Str("name", msg.Name).Msg("Image rejected, going idle")
			return err
		}
		m.state = State{Content: ImageContent{Name: msg.Name, Grid: grid}, ExpiresAt: m.now().Add(ttl)}
		m.log.Debug().Str("name", msg.Name).Int("width", grid.Width).Int("height", grid.Height).
			Dur("ttl", ttl).Msg("Showing image")
		return nil

	default:
		return nil
	}
}

func (m *Machine) decodePayload(msg handlers.DisplayMessage) (*pixel.Grid, error) {
	data, err := msg.ImageBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	grid, err := m.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if grid == nil || grid.Width == 0 || grid.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrBadImage)
	}
	return grid, nil
}

// Tick applies expiry against the current time and returns the state to
// render.
func (m *Machine) Tick() State {
	if m.state.Content != nil && !m.now().Before(m.state.ExpiresAt) {
		m.log.Debug().Str("mode", m.state.Mode().String()).Msg("Content expired")
		m.state = State{}
	}
	return m.state
}

// State returns the current state without applying expiry.
func (m *Machine) State() State {
	return m.state
}
