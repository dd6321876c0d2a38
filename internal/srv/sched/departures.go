package sched

import (
	"context"
	"fmt"
	"strings"

	"github.com/Pharkie/picow-railway-departure/internal/srv/device"
	"github.com/Pharkie/picow-railway-departure/internal/srv/raildata"
)

const (
	maxDestinationChars = 12
	// Columns 97+ of the departure line belong to the time.
	departureTimeClearX = 97
	departureTimeX      = 99
	scrollStep          = 6
)

// departureCycle renders the board for one surface: the current departures
// in sequence, the travel alert when there is one, then around again. On
// sustained fetch failure it says so explicitly instead of freezing stale
// data forever.
func (s *Scheduler) departureCycle(binding SurfaceBinding) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for ctx.Err() == nil {
			snapshot := s.data.Snapshot()

			var err error
			switch {
			case s.data.Failures() >= s.options.FailureThreshold:
				err = s.showUpdateFailed(ctx, binding.Surface)
			case snapshot == nil || len(snapshot.Departures[binding.ID]) == 0:
				err = s.showNoDepartures(ctx, binding.Surface)
			default:
				departures := snapshot.Departures[binding.ID]
				err = s.showFirstDeparture(ctx, binding.Surface, departures[0])
				if err == nil && len(departures) > 1 {
					err = s.showSecondDeparture(ctx, binding.Surface, departures[1])
				}
			}
			if err != nil {
				return err
			}

			if snapshot != nil && snapshot.Alert != "" {
				clock := s.clocks[binding.ID]
				clock.Pause(ctx)
				err = s.showTravelAlert(ctx, binding.Surface, snapshot.Alert)
				clock.Resume(ctx)
				if err != nil {
					return err
				}
			}

			if err := sleep(ctx, s.options.Timings.CycleRest); err != nil {
				return nil
			}
		}
		return nil
	}
}

// showFirstDeparture walks the full sequence for the top departure:
// destination and scheduled time, the estimated-time line, then the calling
// points scrolled across line two.
func (s *Scheduler) showFirstDeparture(ctx context.Context, surface *device.Surface, departure raildata.Service) error {
	lines := wrapText(departure.Destination, maxDestinationChars)

	if err := showDepartureLine(surface, "1 ", lines[0], departure.Scheduled, device.LineOneY); err != nil {
		return err
	}
	if err := sleep(ctx, s.options.Timings.DepartureDwell); err != nil {
		return err
	}

	estimated := "Due on time"
	if departure.Estimated != "On time" {
		estimated = "Now due: " + departure.Estimated
	}
	err := surface.WithFrame(func(f *device.Frame) error {
		f.ClearLine(device.LineTwoY)
		f.TextCentred(estimated, device.LineTwoY)
		return nil
	})
	if err != nil {
		return err
	}
	if err := sleep(ctx, s.options.Timings.DepartureDwell); err != nil {
		return err
	}

	// Long destinations alternate to their next chunk while line two works.
	if len(lines) > 1 {
		if err := showDepartureLine(surface, "1 ", lines[1], departure.Scheduled, device.LineOneY); err != nil {
			return err
		}
	}

	err = surface.WithFrame(func(f *device.Frame) error {
		f.ClearLine(device.LineTwoY)
		return nil
	})
	if err != nil {
		return err
	}
	if err := sleep(ctx, s.options.Timings.LineClearPause); err != nil {
		return err
	}

	if err := s.scrollText(ctx, surface, formatCallingPoints(departure), device.LineTwoY); err != nil {
		return err
	}
	return sleep(ctx, s.options.Timings.DepartureDwell)
}

func (s *Scheduler) showSecondDeparture(ctx context.Context, surface *device.Surface, departure raildata.Service) error {
	lines := wrapText(departure.Destination, maxDestinationChars)
	if err := showDepartureLine(surface, "2 ", lines[0], departure.Scheduled, device.LineTwoY); err != nil {
		return err
	}
	return sleep(ctx, 2*s.options.Timings.DepartureDwell)
}

func showDepartureLine(surface *device.Surface, prefix, destination, scheduled string, y int) error {
	return surface.WithFrame(func(f *device.Frame) error {
		f.ClearLine(y)
		f.Text(prefix+destination, 0, y)
		// Make room for the time whatever the destination length.
		f.FillRect(departureTimeClearX, y, device.DisplayWidth-departureTimeClearX, device.LineHeight, false)
		f.Text(scheduled, departureTimeX, y)
		return nil
	})
}

func (s *Scheduler) showNoDepartures(ctx context.Context, surface *device.Surface) error {
	err := surface.WithFrame(func(f *device.Frame) error {
		f.ClearLine(device.LineOneY)
		f.ClearLine(device.LineTwoY)
		f.TextCentred("No departures", device.LineOneY)
		f.TextCentred("in next 2 hours", device.LineTwoY)
		return nil
	})
	if err != nil {
		return err
	}
	return sleep(ctx, s.options.Timings.NoDeparturesDwell)
}

func (s *Scheduler) showUpdateFailed(ctx context.Context, surface *device.Surface) error {
	retry := fmt.Sprintf("retry in %ds", int(s.data.NextRetryDelay().Seconds()))
	err := surface.WithFrame(func(f *device.Frame) error {
		f.ClearLine(device.LineOneY)
		f.ClearLine(device.LineTwoY)
		f.TextCentred("Update failed", device.LineOneY)
		f.TextCentred(retry, device.LineTwoY)
		return nil
	})
	if err != nil {
		return err
	}
	return sleep(ctx, s.options.Timings.FailureBannerDwell)
}

// scrollText slides text right to left across line y, one guarded frame per
// step.
func (s *Scheduler) scrollText(ctx context.Context, surface *device.Surface, text string, y int) error {
	textWidth := device.TextWidth(text)
	for x := device.DisplayWidth; x > -(textWidth + scrollStep); x -= scrollStep {
		err := surface.WithFrame(func(f *device.Frame) error {
			f.ClearLine(y)
			f.Text(text, x, y)
			return nil
		})
		if err != nil {
			return err
		}
		if err := sleep(ctx, s.options.Timings.ScrollFrameDelay); err != nil {
			return err
		}
	}
	return nil
}

// formatCallingPoints flattens a departure's calling points into the
// scrolled "Calling at" line.
func formatCallingPoints(departure raildata.Service) string {
	points := departure.CallingPoints
	if len(points) == 0 {
		return fmt.Sprintf("Calling at destination only. Operator: %s", departure.Operator)
	}

	formatted := make([]string, len(points))
	for i, point := range points {
		formatted[i] = fmt.Sprintf("%s %s", point.LocationName, point.Time)
	}

	var text string
	if len(formatted) == 1 {
		text = "Calling at: " + formatted[0]
	} else {
		text = "Calling at: " + strings.Join(formatted[:len(formatted)-1], ", ") +
			" and " + formatted[len(formatted)-1]
	}
	return fmt.Sprintf("%s (%s)", text, departure.Operator)
}
