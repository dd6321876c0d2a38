package sched

import (
	"context"

	"github.com/Pharkie/picow-railway-departure/internal/srv/device"
)

const (
	alertFlashCount = 2
	alertPageLines  = 2
	alertLineChars  = 19
	alertBanner     = "Travel Alert"
)

// showTravelAlert flashes the banner, then pages the alert text through the
// top two lines. The caller pauses the clock around this so the whole panel
// belongs to the alert.
func (s *Scheduler) showTravelAlert(ctx context.Context, surface *device.Surface, alert string) error {
	for i := 0; i < alertFlashCount; i++ {
		err := surface.WithFrame(func(f *device.Frame) error {
			f.ClearLine(device.LineOneY)
			f.ClearLine(device.LineTwoY)
			f.TextCentred(alertBanner, device.LineOneY)
			return nil
		})
		if err != nil {
			return err
		}
		if err := sleep(ctx, s.options.Timings.AlertFlash); err != nil {
			return err
		}

		err = surface.WithFrame(func(f *device.Frame) error {
			f.ClearLine(device.LineOneY)
			return nil
		})
		if err != nil {
			return err
		}
		if err := sleep(ctx, s.options.Timings.AlertFlash); err != nil {
			return err
		}
	}

	for _, page := range paginate(alert, alertPageLines, alertLineChars) {
		err := surface.WithFrame(func(f *device.Frame) error {
			f.ClearLine(device.LineOneY)
			f.ClearLine(device.LineTwoY)
			for i, line := range page {
				f.Text(line, 0, i*device.LineHeight)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := sleep(ctx, s.options.Timings.AlertDwell); err != nil {
			return err
		}
	}

	return surface.WithFrame(func(f *device.Frame) error {
		f.Fill(false)
		return nil
	})
}
