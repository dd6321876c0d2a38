package device

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDrawer keeps every flushed frame.
type recordingDrawer struct {
	lock   sync.Mutex
	frames []*image.RGBA
	err    error
}

func (d *recordingDrawer) Draw(img image.Image) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.err != nil {
		return d.err
	}
	d.frames = append(d.frames, img.(*image.RGBA))
	return nil
}

func (d *recordingDrawer) frameCount() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.frames)
}

func (d *recordingDrawer) lastFrame() *image.RGBA {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

func litPixels(img *image.RGBA) int {
	count := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			count++
		}
	}
	return count
}

func TestWithFrameFlushesOnce(t *testing.T) {
	drawer := &recordingDrawer{}
	surface := NewSurface("oled1", drawer)

	err := surface.WithFrame(func(f *Frame) error {
		f.TextCentred("No departures", LineOneY)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, 1, drawer.frameCount())
	assert.Greater(t, litPixels(drawer.lastFrame()), 0)
}

func TestWithFrameErrorSkipsFlush(t *testing.T) {
	drawer := &recordingDrawer{}
	surface := NewSurface("oled1", drawer)

	wantErr := errors.New("boom")
	err := surface.WithFrame(func(f *Frame) error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, drawer.frameCount())
}

func TestWithFrameReportsDeviceError(t *testing.T) {
	drawer := &recordingDrawer{err: errors.New("i2c write failed")}
	surface := NewSurface("oled1", drawer)

	err := surface.WithFrame(func(f *Frame) error {
		f.Fill(false)
		return nil
	})
	assert.Error(t, err)
}

func TestSaveRestoreBuffer(t *testing.T) {
	drawer := &recordingDrawer{}
	surface := NewSurface("oled1", drawer)

	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Text("10:14 Paddington", 0, LineOneY)
		return nil
	}))
	saved := surface.SaveBuffer()
	original := litPixels(saved)
	require.Greater(t, original, 0)

	// Overlay obliterates the frame, restore brings it back verbatim.
	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Fill(false)
		f.TextCentred("Updating trains", LineTwoY)
		return nil
	}))
	require.NoError(t, surface.RestoreBuffer(saved))

	restored := drawer.lastFrame()
	assert.Equal(t, saved.Pix, restored.Pix)
	assert.Equal(t, original, litPixels(restored))
}

func TestFramePrimitives(t *testing.T) {
	drawer := &recordingDrawer{}
	surface := NewSurface("oled1", drawer)

	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Fill(true)
		return nil
	}))
	assert.Equal(t, DisplayWidth*DisplayHeight, litPixels(drawer.lastFrame()))

	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.ClearLine(LineOneY)
		return nil
	}))
	assert.Equal(t, DisplayWidth*(DisplayHeight-LineHeight), litPixels(drawer.lastFrame()))

	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Fill(false)
		f.FillRect(10, 10, 4, 4, true)
		return nil
	}))
	assert.Equal(t, 16, litPixels(drawer.lastFrame()))

	sprite := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(sprite.Pix); i++ {
		sprite.Pix[i] = 255
	}
	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Fill(false)
		f.Blit(sprite, 5, 5)
		return nil
	}))
	assert.Equal(t, 4, litPixels(drawer.lastFrame()))
}

func TestFlushedFramesAreIndependentCopies(t *testing.T) {
	drawer := &recordingDrawer{}
	surface := NewSurface("oled1", drawer)

	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Fill(true)
		return nil
	}))
	first := drawer.lastFrame()
	firstLit := litPixels(first)

	require.NoError(t, surface.WithFrame(func(f *Frame) error {
		f.Fill(false)
		return nil
	}))

	// The earlier flushed frame must not change under later drawing.
	assert.Equal(t, firstLit, litPixels(first))
}

func TestConcurrentFramesDoNotInterleave(t *testing.T) {
	drawer := &recordingDrawer{}
	surface := NewSurface("oled1", drawer)

	// Each writer paints the whole frame with its own value; any mixed
	// frame means two critical sections overlapped.
	var wg sync.WaitGroup
	for _, value := range []bool{true, false} {
		value := value
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				surface.WithFrame(func(f *Frame) error {
					f.Fill(value)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	for _, frame := range drawer.frames {
		lit := litPixels(frame)
		assert.True(t, lit == 0 || lit == DisplayWidth*DisplayHeight,
			"torn frame: %d pixels lit", lit)
	}
}

func TestCentreX(t *testing.T) {
	assert.Equal(t, (DisplayWidth-13*CharWidth)/2, CentreX("No departures"))
	// Longer than the screen clamps to the left edge.
	assert.Equal(t, 0, CentreX("an extremely long destination name"))
}
