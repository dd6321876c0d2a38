package sched

import (
	"context"
	"time"

	"github.com/Pharkie/picow-railway-departure/internal/srv/device"
)

// The clock redraws only this region of line three.
const (
	clockClearX = 40
	clockClearW = 80
	clockTextX  = 46
)

// In offline mode the clock shows "[offline]" for the first ticks of each
// window so nobody mistakes canned data for live departures.
const (
	offlineWindowTicks    = 15
	offlineIndicatorTicks = 3
)

type clockCommand int

const (
	clockPause clockCommand = iota
	clockResume
)

// clockRoutine redraws the wall-clock time roughly once a second, skipping
// redundant redraws when the displayed value has not changed. Pausing and
// resuming is an explicit state transition owned by the scheduler, so the
// alert routine preempts the clock at a well-defined point instead of
// cancelling it mid-draw.
type clockRoutine struct {
	surface     *device.Surface
	offlineMode bool
	tick        time.Duration

	ctl      chan clockCommand
	pauseAck chan struct{}
}

func newClockRoutine(surface *device.Surface, offlineMode bool, tick time.Duration) *clockRoutine {
	return &clockRoutine{
		surface:     surface,
		offlineMode: offlineMode,
		tick:        tick,
		ctl:         make(chan clockCommand),
		pauseAck:    make(chan struct{}, 1),
	}
}

func (c *clockRoutine) run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	paused := false
	lastShown := ""
	counter := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.ctl:
			switch cmd {
			case clockPause:
				paused = true
				lastShown = "" // force a redraw on resume
				select {
				case c.pauseAck <- struct{}{}:
				default:
				}
			case clockResume:
				paused = false
			}
		case <-ticker.C:
			if paused {
				continue
			}

			shown := time.Now().Format("15:04:05")
			if c.offlineMode {
				if counter < offlineIndicatorTicks {
					shown = "[offline]"
				}
				counter++
				if counter == offlineWindowTicks {
					counter = 0
				}
			}
			if shown == lastShown {
				continue
			}

			err := c.surface.WithFrame(func(f *device.Frame) error {
				f.FillRect(clockClearX, device.LineThreeY, clockClearW, device.LineHeight, false)
				f.Text(shown, clockTextX, device.LineThreeY)
				return nil
			})
			if err != nil {
				return err
			}
			lastShown = shown
		}
	}
}

// Pause stops the clock drawing and returns once the routine has
// acknowledged, so no clock frame can land after Pause returns.
func (c *clockRoutine) Pause(ctx context.Context) {
	select {
	case c.ctl <- clockPause:
	case <-ctx.Done():
		return
	}
	select {
	case <-c.pauseAck:
	case <-ctx.Done():
	}
}

func (c *clockRoutine) Resume(ctx context.Context) {
	select {
	case c.ctl <- clockResume:
	case <-ctx.Done():
	}
}
