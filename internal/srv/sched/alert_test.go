package sched

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pharkie/picow-railway-departure/internal/srv/device"
	"github.com/Pharkie/picow-railway-departure/internal/srv/raildata"
)

var (
	clockRegion   = image.Rect(clockClearX, device.LineThreeY, clockClearX+clockClearW, device.LineThreeY+device.LineHeight)
	lineOneRegion = image.Rect(0, device.LineOneY, device.DisplayWidth, device.LineOneY+device.LineHeight)
	lineTwoRegion = image.Rect(0, device.LineTwoY, device.DisplayWidth, device.LineTwoY+device.LineHeight)
)

func (d *countingDrawer) snapshot() []image.Image {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]image.Image(nil), d.frames...)
}

func regionPix(img *image.RGBA, r image.Rectangle) []byte {
	var out []byte
	for y := r.Min.Y; y < r.Max.Y; y++ {
		out = append(out, img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]...)
	}
	return out
}

func litInRegion(img *image.RGBA, r image.Rectangle) int {
	lit := 0
	pix := regionPix(img, r)
	for i := 0; i < len(pix); i += 4 {
		if pix[i] == 255 {
			lit++
		}
	}
	return lit
}

// The alert banner is the only frame lighting line one while line two is
// dark; the final clear is the only fully dark frame. Together they bound
// the alert's frame span.
func findAlertSpan(frames []image.Image) (banner, clear int) {
	banner, clear = -1, -1
	for i, frame := range frames {
		img := frame.(*image.RGBA)
		if banner < 0 {
			if litInRegion(img, lineOneRegion) > 0 && litInRegion(img, lineTwoRegion) == 0 {
				banner = i
			}
			continue
		}
		if litPixelCount(img) == 0 {
			clear = i
			return
		}
	}
	return
}

// The travel alert owns the whole panel: from the first banner frame to the
// final clear, no clock redraw may land, and the clock comes back right
// after.
func TestAlertSilencesClockUntilFinalClear(t *testing.T) {
	drawer := &countingDrawer{}
	data := &fakeData{
		snapshot: &raildata.Snapshot{
			Departures: map[raildata.SurfaceID][]raildata.Service{},
			Alert:      "Buses replace trains between Swindon and Bristol Parkway",
			FetchedAt:  time.Now(),
		},
	}

	binding := SurfaceBinding{
		Surface: device.NewSurface("test", drawer),
		ID:      raildata.SurfaceID(0),
	}

	// The offline clock alternates its display every few ticks, so an
	// unpaused clock would redraw many times inside the alert span.
	timings := tinyTimings()
	timings.NoDeparturesDwell = 50 * time.Millisecond
	timings.AlertFlash = 20 * time.Millisecond
	timings.AlertDwell = 20 * time.Millisecond
	timings.CycleRest = 300 * time.Millisecond

	scheduler := New(data, []SurfaceBinding{binding}, Options{
		OfflineMode:      true,
		FailureThreshold: 3,
		Timings:          timings,
	})
	scheduler.Start()

	assert.Eventually(t, func() bool {
		frames := drawer.snapshot()
		_, clear := findAlertSpan(frames)
		if clear < 0 {
			return false
		}
		for i := clear + 1; i < len(frames); i++ {
			if litInRegion(frames[i].(*image.RGBA), clockRegion) > 0 {
				return true
			}
		}
		return false
	}, 3*time.Second, 5*time.Millisecond, "alert never completed or clock never resumed")
	scheduler.Stop()

	frames := drawer.snapshot()
	banner, clear := findAlertSpan(frames)
	require.GreaterOrEqual(t, banner, 0)
	require.Greater(t, clear, banner)

	// No frame inside the alert span touches the clock's part of line
	// three; the final clear blanks it along with everything else.
	clockAtBanner := regionPix(frames[banner].(*image.RGBA), clockRegion)
	for i := banner + 1; i < clear; i++ {
		assert.Equal(t, clockAtBanner, regionPix(frames[i].(*image.RGBA), clockRegion),
			"clock redraw inside alert span at frame %d", i)
	}

	// The clock redraws once the alert hands the panel back.
	resumed := false
	for i := clear + 1; i < len(frames); i++ {
		if litInRegion(frames[i].(*image.RGBA), clockRegion) > 0 {
			resumed = true
			break
		}
	}
	assert.True(t, resumed)
}
