// Package pacing measures frame times, smooths the frame rate and sleeps
// the render loop down to a target rate.
package pacing

import (
	"fmt"
	"time"
)

// DefaultAlpha is the EMA smoothing factor used by New(0).
const DefaultAlpha = 0.12

// Governor tracks one render loop. It is not safe for concurrent use.
type Governor struct {
	alpha      float64
	now        func() time.Time
	sleep      func(time.Duration)
	frameStart time.Time
	last       time.Duration // last completed frame, work plus any cap sleep
	ema        float64       // smoothed FPS, negative until the first frame
}

// New returns a governor on the wall clock. alpha is clamped to [0.01, 1];
// zero selects DefaultAlpha.
func New(alpha float64) *Governor {
	return NewWithClock(alpha, time.Now, time.Sleep)
}

// NewWithClock lets tests drive time.
func NewWithClock(alpha float64, now func() time.Time, sleep func(time.Duration)) *Governor {
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	return &Governor{
		alpha: max(0.01, min(1.0, alpha)),
		now:   now,
		sleep: sleep,
		ema:   -1,
	}
}

func (g *Governor) Alpha() float64 { return g.alpha }

// BeginFrame marks the start of a frame.
func (g *Governor) BeginFrame() {
	g.frameStart = g.now()
}

// EndFrame records the work time since BeginFrame and returns it.
func (g *Governor) EndFrame() time.Duration {
	g.record(g.elapsed())
	return g.last
}

// EndFrameAndCap ends the frame and sleeps whatever is left of the
// 1/targetFPS budget. The recorded duration includes the sleep, so FPS
// reports achieved throughput. targetFPS <= 0 means uncapped.
func (g *Governor) EndFrameAndCap(targetFPS int) time.Duration {
	work := g.elapsed()
	total := work
	if remaining := budget(targetFPS) - work; targetFPS > 0 && remaining > 0 {
		g.sleep(remaining)
		total += remaining
	}
	g.record(total)
	return total
}

// SleepToCap sleeps the remainder of the budget after EndFrame has already
// been called. It does not touch the statistics.
func (g *Governor) SleepToCap(targetFPS int) {
	if targetFPS <= 0 {
		return
	}
	if remaining := budget(targetFPS) - g.last; remaining > 0 {
		g.sleep(remaining)
	}
}

// FPS is the smoothed rate, 0 before the first frame completes.
func (g *Governor) FPS() float64 {
	if g.ema < 0 {
		return 0
	}
	return g.ema
}

// FrameDuration is the last recorded frame time.
func (g *Governor) FrameDuration() time.Duration { return g.last }

// FrameMs is the last frame time in milliseconds.
func (g *Governor) FrameMs() float64 {
	return float64(g.last) / float64(time.Millisecond)
}

// DeltaSeconds is the last frame time in seconds, for animation integration.
func (g *Governor) DeltaSeconds() float64 {
	return g.last.Seconds()
}

// Reset forgets all statistics.
func (g *Governor) Reset() {
	g.frameStart = time.Time{}
	g.last = 0
	g.ema = -1
}

// Label renders the overlay string.
func (g *Governor) Label() string {
	return fmt.Sprintf("FPS: %.1f", g.FPS())
}

func (g *Governor) elapsed() time.Duration {
	return max(time.Nanosecond, g.now().Sub(g.frameStart))
}

func (g *Governor) record(d time.Duration) {
	g.last = d
	inst := float64(time.Second) / float64(d)
	if g.ema < 0 {
		g.ema = inst
		return
	}
	g.ema = g.alpha*inst + (1-g.alpha)*g.ema
}

func budget(targetFPS int) time.Duration {
	return time.Second / time.Duration(max(1, targetFPS))
}
