// Package render turns the display state into panel frames at a bounded
// rate.
package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/rs/zerolog"

	"pixelcast/internal/display"
	"pixelcast/internal/fit"
	"pixelcast/internal/layout"
	"pixelcast/internal/logger"
	"pixelcast/internal/pacing"
	"pixelcast/internal/panel"
	"pixelcast/internal/pixel"
)

var (
	textColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shadowColor = color.RGBA{A: 255}
)

// Options controls composition and pacing.
type Options struct {
	Fit         fit.Mode
	FPSCap      int
	Brightness  int
	TextX       int
	ReservedTop int
	TextTopPad  int
	ShowFPS     bool
	OverlayX    int
	OverlayY    int // baseline
	BlankFrames int
	BlankDelay  time.Duration
}

// DefaultOptions matches a 64x64 panel.
func DefaultOptions() Options {
	return Options{
		Fit:         fit.Contain,
		FPSCap:      60,
		Brightness:  200,
		TextX:       5,
		ReservedTop: 12,
		TextTopPad:  2,
		ShowFPS:     true,
		OverlayX:    1,
		OverlayY:    9,
		BlankFrames: 2,
		BlankDelay:  10 * time.Millisecond,
	}
}

// Loop owns the display state, the back buffer and the device for the
// lifetime of Run.
type Loop struct {
	dev     panel.Device
	inbox   *display.Inbox
	machine *display.Machine
	gov     *pacing.Governor
	font    *Font
	opts    Options
	back    *pixel.Grid
	frames  uint64
	log     zerolog.Logger
}

func NewLoop(dev panel.Device, inbox *display.Inbox, machine *display.Machine, gov *pacing.Governor, opts Options) *Loop {
	fb := dev.MapFramebuffer()
	return &Loop{
		dev:     dev,
		inbox:   inbox,
		machine: machine,
		gov:     gov,
		font:    DefaultFont(),
		opts:    opts,
		back:    pixel.New(fb.Width, fb.Height),
		log:     logger.With("render"),
	}
}

// Back exposes the composed frame.
func (l *Loop) Back() *pixel.Grid { return l.back }

// Run blanks the panel, renders until ctx is cancelled or the device fails,
// then blanks and closes the device whatever happened.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer func() {
		if ferr := panel.FlushBlack(l.dev, l.opts.BlankFrames, l.opts.BlankDelay); ferr != nil {
			l.log.Warn().Err(ferr).Msg("Final blank failed")
		}
		err = errors.Join(err, l.dev.Close())
		l.log.Info().Uint64("frames", l.frames).Uint64("dropped", l.inbox.Drops()).Msg("Render loop stopped")
	}()

	if err := l.dev.SetBrightness(l.opts.Brightness); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	if err := panel.FlushBlack(l.dev, l.opts.BlankFrames, l.opts.BlankDelay); err != nil {
		return err
	}

	l.log.Info().Int("width", l.back.Width).Int("height", l.back.Height).
		Int("fps_cap", l.opts.FPSCap).Str("fit", l.opts.Fit.String()).Msg("Render loop started")

	for ctx.Err() == nil {
		l.gov.BeginFrame()
		if err := l.Frame(); err != nil {
			return err
		}
		l.gov.EndFrameAndCap(l.opts.FPSCap)
	}
	return nil
}

// Frame renders and presents one frame.
func (l *Loop) Frame() error {
	if msg, ok := l.inbox.Take(); ok {
		if err := l.machine.Apply(msg); err != nil {
			l.log.Warn().Err(err).Msg("Message not shown")
		}
	}
	l.Compose(l.machine.Tick())

	panel.Copy(l.dev.MapFramebuffer(), l.back, l.opts.Brightness)
	if err := l.dev.Swap(); err != nil {
		return fmt.Errorf("swap frame %d: %w", l.frames, err)
	}
	l.frames++
	return nil
}

// Compose draws st into the back buffer: black background, the content,
// then the FPS overlay on top.
func (l *Loop) Compose(st display.State) {
	l.back.Clear()

	switch c := st.Content.(type) {
	case display.TextContent:
		l.drawText(c.Text)
	case display.ImageContent:
		fit.Blit(l.back, c.Grid, fit.Rect{W: l.back.Width, H: l.back.Height}, l.opts.Fit)
	}

	if l.opts.ShowFPS {
		label := l.gov.Label()
		l.font.DrawLine(l.back, l.opts.OverlayX+1, l.opts.OverlayY+1, label, shadowColor)
		l.font.DrawLine(l.back, l.opts.OverlayX, l.opts.OverlayY, label, textColor)
	}
}

func (l *Loop) drawText(text string) {
	top := max(0, l.opts.ReservedTop+l.opts.TextTopPad)
	availW := max(0, l.back.Width-l.opts.TextX)
	availH := max(0, l.back.Height-top)

	baseline := top + l.font.Ascent()
	for _, line := range layout.Wrap(text, l.font, availW, availH) {
		l.font.DrawLine(l.back, l.opts.TextX, baseline, line, textColor)
		baseline += l.font.LineHeight()
	}
}
