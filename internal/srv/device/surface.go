package device

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// Screen geometry for the SSD1306 boards, three text lines of a 6px-wide
// bitmap font.
const (
	DisplayWidth  = 128
	DisplayHeight = 32

	LineOneY   = 0
	LineTwoY   = 11
	LineThreeY = 22
	LineHeight = 10
	CharWidth  = 6
)

// Drawer receives complete frames. *Display implements it; tests substitute
// a recorder.
type Drawer interface {
	Draw(img image.Image) error
}

// Surface is the exclusive-access wrapper around one framebuffer. All
// drawing happens inside WithFrame, which holds the surface guard for the
// whole draw-and-flush critical section so two renderers can never
// interleave partial draws.
type Surface struct {
	name   string
	drawer Drawer

	lock sync.Mutex
	buf  *image.RGBA
}

func NewSurface(name string, drawer Drawer) *Surface {
	return &Surface{
		name:   name,
		drawer: drawer,
		buf:    image.NewRGBA(image.Rect(0, 0, DisplayWidth, DisplayHeight)),
	}
}

func (s *Surface) Name() string {
	return s.name
}

// WithFrame runs fn with the surface guard held, then flushes the buffer to
// the device while still holding it. If fn fails nothing is flushed and the
// buffer keeps whatever fn drew; callers redraw fully on retry, so no
// half-frame ever reaches the device.
func (s *Surface) WithFrame(fn func(f *Frame) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := fn(&Frame{buf: s.buf}); err != nil {
		return err
	}
	return s.flushLocked()
}

// SaveBuffer captures the current buffer contents for a later
// RestoreBuffer, used to show a transient overlay without losing the frame
// underneath.
func (s *Surface) SaveBuffer() *image.RGBA {
	s.lock.Lock()
	defer s.lock.Unlock()

	saved := image.NewRGBA(s.buf.Rect)
	copy(saved.Pix, s.buf.Pix)
	return saved
}

// RestoreBuffer puts saved contents back verbatim and flushes them.
func (s *Surface) RestoreBuffer(saved *image.RGBA) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	copy(s.buf.Pix, saved.Pix)
	return s.flushLocked()
}

func (s *Surface) flushLocked() error {
	// The device keeps the frame it was handed, so it gets its own copy.
	frame := image.NewRGBA(s.buf.Rect)
	copy(frame.Pix, s.buf.Pix)
	return s.drawer.Draw(frame)
}

// Frame is the drawing handle passed to WithFrame callbacks. It is only
// valid for the duration of the callback.
type Frame struct {
	buf *image.RGBA
}

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

func (f *Frame) Fill(on bool) {
	f.FillRect(0, 0, DisplayWidth, DisplayHeight, on)
}

func (f *Frame) FillRect(x, y, w, h int, on bool) {
	c := black
	if on {
		c = white
	}
	draw.Draw(f.buf, image.Rect(x, y, x+w, y+h), &image.Uniform{c}, image.Point{}, draw.Src)
}

// ClearLine blanks one text line.
func (f *Frame) ClearLine(y int) {
	f.FillRect(0, y, DisplayWidth, LineHeight, false)
}

// Text draws s with its top-left corner at (x, y).
func (f *Frame) Text(s string, x, y int) {
	drawLabel(f.buf, x, y, s)
}

// TextCentred draws s horizontally centred on line y.
func (f *Frame) TextCentred(s string, y int) {
	f.Text(s, CentreX(s), y)
}

func (f *Frame) Blit(img image.Image, x, y int) {
	draw.Draw(f.buf, img.Bounds().Add(image.Pt(x, y)), img, img.Bounds().Min, draw.Over)
}

// TextWidth is the pixel width of s in the board font.
func TextWidth(s string) int {
	return len(s) * CharWidth
}

// CentreX is the x position that centres s, clamped at the left edge.
func CentreX(s string) int {
	x := (DisplayWidth - TextWidth(s)) / 2
	if x < 0 {
		x = 0
	}
	return x
}
