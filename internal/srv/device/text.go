package device

import (
	"image"

	"github.com/hajimehoshi/bitmapfont/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var fontColor = image.NewUniform(white)

// drawLabel draws label into img with its top-left corner at (x, y). The
// bitmap font draws from the baseline, one line height below the top.
func drawLabel(img *image.RGBA, x, y int, label string) {
	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6((y + LineHeight) * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  fontColor,
		Face: bitmapfont.Face,
		Dot:  point,
	}
	d.DrawString(label)
}
