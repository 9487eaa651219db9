package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Physical page geometry in millimetres.
const (
	pdfPageWidth  = 210.0
	pdfPageHeight = 297.0
	pdfMargin     = 10.0
)

// CoverInfo describes the optional document-level cover page.
type CoverInfo struct {
	Title        string
	ClassName    string
	TermName     string
	StudentCount int
	Watermark    string
	Template     string
	GeneratedAt  time.Time
}

// PDFAssembler concatenates rendered page bitmaps into one paginated
// document. The handle is a single mutable resource owned by one batch run;
// it must not be written to concurrently.
type PDFAssembler struct {
	pdf        *gofpdf.Fpdf
	imageCount int
}

// NewPDFAssembler constructs an empty A4 portrait document.
func NewPDFAssembler() *PDFAssembler {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	return &PDFAssembler{pdf: pdf}
}

// AddCoverPage inserts the batch cover sheet. Call before any student
// content; it always occupies the first page.
func (a *PDFAssembler) AddCoverPage(info CoverInfo) {
	a.pdf.AddPage()
	a.pdf.SetFont("Arial", "B", 22)
	a.pdf.SetY(60)
	a.pdf.CellFormat(0, 12, strings.ToUpper(info.Title), "", 1, "C", false, 0, "")

	a.pdf.Ln(8)
	a.pdf.SetFont("Arial", "", 12)
	lines := []string{
		fmt.Sprintf("Class: %s", info.ClassName),
		fmt.Sprintf("Term: %s", info.TermName),
		fmt.Sprintf("Students: %d", info.StudentCount),
		fmt.Sprintf("Watermark: %s", info.Watermark),
		fmt.Sprintf("Template: %s", info.Template),
		fmt.Sprintf("Generated: %s", info.GeneratedAt.UTC().Format(time.RFC3339)),
	}
	for _, line := range lines {
		a.pdf.CellFormat(0, 8, line, "", 1, "C", false, 0, "")
	}
}

// AppendBitmaps adds one student's ordered page bitmaps. The first bitmap
// always starts on a fresh physical page, so students never share a page in
// a combined document.
func (a *PDFAssembler) AppendBitmaps(pages []image.Image) error {
	if len(pages) == 0 {
		return fmt.Errorf("no page bitmaps to append")
	}
	for _, page := range pages {
		if err := a.appendBitmap(page); err != nil {
			return err
		}
	}
	return nil
}

// appendBitmap places one bitmap into the margin-inset content box. A bitmap
// whose scaled height exceeds one content box is tiled across additional
// pages by shifting it upward per page until fully covered; page boundaries
// clip the overflow.
func (a *PDFAssembler) appendBitmap(img image.Image) error {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return fmt.Errorf("encode page bitmap: %w", err)
	}
	a.imageCount++
	name := fmt.Sprintf("page-%d", a.imageCount)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	a.pdf.RegisterImageOptionsReader(name, opts, buf)
	if a.pdf.Err() {
		return fmt.Errorf("register page bitmap: %w", a.pdf.Error())
	}

	bounds := img.Bounds()
	contentW := pdfPageWidth - 2*pdfMargin
	contentH := pdfPageHeight - 2*pdfMargin
	scaledH := contentW * float64(bounds.Dy()) / float64(bounds.Dx())

	for offset := 0.0; offset == 0 || offset < scaledH; offset += contentH {
		a.pdf.AddPage()
		a.pdf.ImageOptions(name, pdfMargin, pdfMargin-offset, contentW, scaledH, false, opts, 0, "")
		if a.pdf.Err() {
			return fmt.Errorf("place page bitmap: %w", a.pdf.Error())
		}
	}
	return nil
}

// PageCount reports the number of physical pages assembled so far.
func (a *PDFAssembler) PageCount() int {
	return a.pdf.PageCount()
}

// Output serialises the document. The assembler must not be reused after.
func (a *PDFAssembler) Output() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := a.pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("serialise pdf: %w", err)
	}
	return buf.Bytes(), nil
}
