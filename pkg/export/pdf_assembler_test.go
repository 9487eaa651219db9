package export

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidBitmap(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestAppendBitmapsSinglePage(t *testing.T) {
	a := NewPDFAssembler()
	require.NoError(t, a.AppendBitmaps([]image.Image{solidBitmap(794, 1122)}))
	assert.Equal(t, 1, a.PageCount())

	out, err := a.Output()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestAppendBitmapsTilesOverflow(t *testing.T) {
	// Content box is 190x277mm; a 794x3000px bitmap scales to ~718mm tall
	// and must tile across three physical pages.
	a := NewPDFAssembler()
	require.NoError(t, a.AppendBitmaps([]image.Image{solidBitmap(794, 3000)}))
	assert.Equal(t, 3, a.PageCount())
}

func TestAppendBitmapsStartsNewPagePerStudent(t *testing.T) {
	a := NewPDFAssembler()
	require.NoError(t, a.AppendBitmaps([]image.Image{solidBitmap(794, 1122)}))
	require.NoError(t, a.AppendBitmaps([]image.Image{solidBitmap(794, 1122), solidBitmap(794, 1122)}))
	assert.Equal(t, 3, a.PageCount())
}

func TestAppendBitmapsRejectsEmpty(t *testing.T) {
	a := NewPDFAssembler()
	assert.Error(t, a.AppendBitmaps(nil))
}

func TestCoverPageIsFirst(t *testing.T) {
	a := NewPDFAssembler()
	a.AddCoverPage(CoverInfo{
		Title:        "Grade 5 Report Cards",
		ClassName:    "Grade 5",
		TermName:     "First Term",
		StudentCount: 3,
		Watermark:    "FINAL",
		Template:     "classic",
		GeneratedAt:  time.Now(),
	})
	require.NoError(t, a.AppendBitmaps([]image.Image{solidBitmap(794, 1122)}))
	assert.Equal(t, 2, a.PageCount())
}
