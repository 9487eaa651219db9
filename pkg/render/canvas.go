package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// canvas wraps an RGBA page bitmap with primitive drawing helpers. One
// canvas is scratch space for exactly one page; it is not safe for
// concurrent use.
type canvas struct {
	img *image.RGBA
	w   int
	h   int
}

func newCanvas(w, h int, bg color.Color) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &canvas{img: img, w: w, h: h}
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)
}

// hline draws a 1px horizontal rule.
func (c *canvas) hline(x1, x2, y int, col color.Color) {
	c.fill(image.Rect(x1, y, x2, y+1), col)
}

// text draws a string with its baseline at y.
func (c *canvas) text(x, y int, s string, face font.Face, col color.Color) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (c *canvas) textCentered(cx, y int, s string, face font.Face, col color.Color) {
	c.text(cx-textWidth(face, s)/2, y, s, face, col)
}

func (c *canvas) textRight(x2, y int, s string, face font.Face, col color.Color) {
	c.text(x2-textWidth(face, s), y, s, face, col)
}

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// truncate shortens a string so it fits within maxWidth for the given face.
func truncate(face font.Face, s string, maxWidth int) string {
	if textWidth(face, s) <= maxWidth {
		return s
	}
	ellipsis := "..."
	for len(s) > 0 {
		s = s[:len(s)-1]
		if textWidth(face, s+ellipsis) <= maxWidth {
			return s + ellipsis
		}
	}
	return ellipsis
}
