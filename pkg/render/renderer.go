package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"

	"github.com/edubridge/reportcard-api/internal/models"
)

// A4 proportions; the rendered page is fixed-size and independent of any
// surrounding viewport.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// PageRenderer rasterizes one canonical report card into ordered page
// bitmaps. Implementations own their scratch surfaces; a single renderer
// must not be driven concurrently.
type PageRenderer interface {
	Render(card *models.ReportCard, variant string, watermark models.WatermarkTag) ([]image.Image, error)
}

// Options tunes the canvas renderer.
type Options struct {
	DPI int
}

// CanvasRenderer renders report cards off-screen onto RGBA page canvases.
type CanvasRenderer struct {
	dpi int
}

// NewCanvasRenderer constructs a renderer at the given DPI (default 96).
func NewCanvasRenderer(opts Options) *CanvasRenderer {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 96
	}
	return &CanvasRenderer{dpi: dpi}
}

// Render splits the subject list across pages by the variant's capacity and
// draws each page. Page order follows subject order; chunk concatenation
// reproduces the subject list exactly.
func (r *CanvasRenderer) Render(card *models.ReportCard, variant string, watermark models.WatermarkTag) ([]image.Image, error) {
	if card == nil {
		return nil, fmt.Errorf("nil report card")
	}
	sk, err := skinFor(variant)
	if err != nil {
		return nil, err
	}
	if themed, ok := parseHexColor(card.Visual.ThemeColor); ok {
		sk.pal.banner = themed
		sk.pal.accent = themed
	}

	chunks := SplitSubjects(card.Subjects, sk.capacity)
	w := int(a4WidthInches*float64(r.dpi) + 0.5)
	h := int(a4HeightInches*float64(r.dpi) + 0.5)

	pages := make([]image.Image, 0, len(chunks))
	rowOffset := 0
	for i, chunk := range chunks {
		p := &pageCtx{
			c:         newCanvas(w, h, sk.pal.background),
			sk:        sk,
			card:      card,
			dpi:       r.dpi,
			pageNo:    i + 1,
			pageCount: len(chunks),
			rowOffset: rowOffset,
		}
		p.draw(chunk)
		rowOffset += len(chunk)

		var page image.Image = p.c.img
		if watermark != "" && watermark != models.WatermarkNone {
			page = overlayWatermark(page, string(watermark), sk.pal.accent)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// pageCtx is the per-page drawing cursor. The canvas is scratch space torn
// down when the page bitmap is handed off.
type pageCtx struct {
	c         *canvas
	sk        skin
	card      *models.ReportCard
	dpi       int
	pageNo    int
	pageCount int
	rowOffset int
	y         int
}

// u scales a 96-dpi design unit to the render DPI.
func (p *pageCtx) u(v int) int {
	return v * p.dpi / 96
}

func (p *pageCtx) margin() int { return p.u(48) }

var (
	faceTitle = inconsolata.Bold8x16
	faceBody  = inconsolata.Regular8x16
	faceSmall = basicfont.Face7x13
)

func (p *pageCtx) draw(chunk []models.SubjectRecord) {
	p.drawBanner()
	last := p.pageNo == p.pageCount
	for _, sec := range p.sk.order {
		switch sec {
		case secStudent:
			p.drawStudent()
		case secSubjects:
			p.drawSubjects(chunk)
		case secSummary:
			if last {
				p.drawSummary()
			}
		case secAttendance:
			if last && p.card.Attendance != nil {
				p.drawAttendance()
			}
		case secComments:
			if last {
				p.drawComments()
			}
		}
	}
	p.drawFooter()
}

func (p *pageCtx) drawBanner() {
	w := p.c.w
	bannerH := p.u(118)
	p.c.fill(image.Rect(0, 0, w, bannerH), p.sk.pal.banner)

	cx := w / 2
	name := Sanitize(p.card.School.DisplayName)
	if name == "" {
		name = Sanitize(p.card.School.Name)
	}
	p.c.textCentered(cx, p.u(38), strings.ToUpper(name), faceTitle, p.sk.pal.bannerText)
	if addr := Sanitize(p.card.School.Address); addr != "" {
		p.c.textCentered(cx, p.u(60), addr, faceSmall, p.sk.pal.bannerText)
	}
	if motto := Sanitize(p.card.School.Motto); motto != "" {
		p.c.textCentered(cx, p.u(78), motto, faceSmall, p.sk.pal.bannerText)
	}
	p.c.textCentered(cx, p.u(104), "STUDENT REPORT CARD", faceBody, p.sk.pal.bannerText)

	termLine := strings.TrimSpace(p.card.Term.Session + " Session")
	if p.card.Term.Term != "" {
		termLine += " - " + Sanitize(p.card.Term.Term)
	}
	p.c.textCentered(cx, bannerH+p.u(24), termLine, faceBody, p.sk.pal.accent)
	p.y = bannerH + p.u(40)
}

func (p *pageCtx) drawStudent() {
	m := p.margin()
	s := p.card.Student
	left := []string{
		"Name: " + Sanitize(s.FullName),
		"Admission No: " + Sanitize(s.AdmissionNo),
	}
	class := Sanitize(s.ClassName)
	if s.ArmName != "" {
		class += " (" + Sanitize(s.ArmName) + ")"
	}
	right := []string{"Class: " + class}
	if p.pageNo > 1 {
		right = append(right, fmt.Sprintf("Continued - page %d", p.pageNo))
	}

	y := p.y + p.u(8)
	for i, line := range left {
		p.c.text(m, y+p.u(20*i), line, faceBody, p.sk.pal.text)
	}
	for i, line := range right {
		p.c.textRight(p.c.w-m, y+p.u(20*i), line, faceBody, p.sk.pal.text)
	}
	p.y = y + p.u(20*len(left))
	p.c.hline(m, p.c.w-m, p.y, p.sk.pal.accent)
	p.y += p.u(14)
}

// componentColumns resolves the component score columns: explicit
// definitions win; otherwise components observed on subjects are bucketed
// into CA/Exam by keyword as a fallback.
func (p *pageCtx) componentColumns() []string {
	if len(p.card.Components) > 0 {
		cols := make([]string, 0, len(p.card.Components))
		for _, def := range p.card.Components {
			cols = append(cols, def.Name)
			if len(cols) == 4 {
				break
			}
		}
		return cols
	}
	for _, subj := range p.card.Subjects {
		if len(subj.Components) > 0 {
			return []string{"CA", "Exam"}
		}
	}
	return nil
}

var examKeywords = []string{"exam", "final"}

func isExamComponent(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range examKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func componentValue(subj models.SubjectRecord, col string, fallback bool) string {
	if !fallback {
		if v, ok := subj.Components[col]; ok {
			return Score(v)
		}
		return "-"
	}
	// CA/Exam bucketing fallback.
	var sum float64
	found := false
	for name, v := range subj.Components {
		if isExamComponent(name) == (col == "Exam") {
			sum += v
			found = true
		}
	}
	if !found {
		return "-"
	}
	return Score(sum)
}

func (p *pageCtx) drawSubjects(chunk []models.SubjectRecord) {
	m := p.margin()
	w := p.c.w - 2*m
	cols := p.componentColumns()
	fallback := len(p.card.Components) == 0 && cols != nil

	idxW := p.u(34)
	gradeW := p.u(52)
	totalW := p.u(56)
	compW := p.u(62)
	rest := w - idxW - gradeW - totalW - len(cols)*compW
	subjW := rest * 45 / 100
	remarkW := rest - subjW

	rowH := p.u(p.sk.rowHeight)
	headH := p.u(26)

	// header row
	p.c.fill(image.Rect(m, p.y, m+w, p.y+headH), p.sk.pal.tableHead)
	x := m
	baseline := p.y + headH - p.u(8)
	p.c.text(x+p.u(4), baseline, "#", faceSmall, p.sk.pal.text)
	x += idxW
	p.c.text(x+p.u(4), baseline, "Subject", faceSmall, p.sk.pal.text)
	x += subjW
	for _, col := range cols {
		p.c.text(x+p.u(4), baseline, truncate(faceSmall, col, compW-p.u(8)), faceSmall, p.sk.pal.text)
		x += compW
	}
	p.c.text(x+p.u(4), baseline, "Total", faceSmall, p.sk.pal.text)
	x += totalW
	p.c.text(x+p.u(4), baseline, "Grade", faceSmall, p.sk.pal.text)
	x += gradeW
	p.c.text(x+p.u(4), baseline, "Remark", faceSmall, p.sk.pal.text)
	p.y += headH

	if len(chunk) == 0 {
		p.c.text(m+p.u(4), p.y+rowH-p.u(10), "No subjects recorded", faceBody, p.sk.pal.subtle)
		p.y += rowH + p.u(10)
		return
	}

	for i, subj := range chunk {
		if i%2 == 1 {
			p.c.fill(image.Rect(m, p.y, m+w, p.y+rowH), p.sk.pal.rowAlt)
		}
		baseline := p.y + rowH - p.u(10)
		x := m
		p.c.text(x+p.u(4), baseline, fmt.Sprintf("%d", p.rowOffset+i+1), faceSmall, p.sk.pal.subtle)
		x += idxW
		p.c.text(x+p.u(4), baseline, truncate(faceBody, Sanitize(subj.Name), subjW-p.u(8)), faceBody, p.sk.pal.text)
		x += subjW
		for _, col := range cols {
			p.c.text(x+p.u(4), baseline, componentValue(subj, col, fallback), faceBody, p.sk.pal.text)
			x += compW
		}
		p.c.text(x+p.u(4), baseline, Score(subj.Total), faceBody, p.sk.pal.text)
		x += totalW
		p.c.text(x+p.u(4), baseline, subj.Grade, faceBody, p.sk.pal.accent)
		x += gradeW
		remark := Sanitize(subj.Remark)
		if subj.Rank != nil {
			remark = strings.TrimSpace(remark + " (" + Ordinal(subj.Rank) + ")")
		}
		p.c.text(x+p.u(4), baseline, truncate(faceSmall, remark, remarkW-p.u(8)), faceSmall, p.sk.pal.subtle)
		p.y += rowH
	}
	p.c.hline(m, m+w, p.y, p.sk.pal.accent)
	p.y += p.u(16)
}

func (p *pageCtx) drawSummary() {
	m := p.margin()
	sum := p.card.Summary
	p.c.text(m, p.y+p.u(14), "SUMMARY", faceTitle, p.sk.pal.accent)
	p.y += p.u(24)

	armPos := Ordinal(sum.PositionInArm)
	if sum.PositionInArm != nil && sum.ArmSize > 0 {
		armPos = fmt.Sprintf("%s of %d", armPos, sum.ArmSize)
	}
	levelPos := Ordinal(sum.PositionInLevel)
	if sum.PositionInLevel != nil && sum.LevelSize > 0 {
		levelPos = fmt.Sprintf("%s of %d", levelPos, sum.LevelSize)
	}
	gpa := sum.GPA
	if gpa == "" {
		gpa = "N/A"
	}

	left := []string{
		"Total Score: " + Score(sum.TotalScore),
		"Average Score: " + Score(sum.AverageScore),
		"GPA: " + gpa,
	}
	right := []string{
		"Position in Class: " + armPos,
		"Position in Level: " + levelPos,
		"Percentile: " + Percentile(sum.Percentile),
	}
	for i := range left {
		y := p.y + p.u(20*(i+1))
		p.c.text(m, y, left[i], faceBody, p.sk.pal.text)
		p.c.text(p.c.w/2, y, right[i], faceBody, p.sk.pal.text)
	}
	p.y += p.u(20*len(left)) + p.u(16)
}

func (p *pageCtx) drawAttendance() {
	m := p.margin()
	a := p.card.Attendance
	p.c.text(m, p.y+p.u(14), "ATTENDANCE", faceTitle, p.sk.pal.accent)
	line := fmt.Sprintf("Present %d   Absent %d   Late %d   Excused %d   Unexcused %d   Total %d   Rate %.1f%%",
		a.Present, a.Absent, a.Late, a.Excused, a.Unexcused, a.Total, a.Rate)
	p.c.text(m, p.y+p.u(34), line, faceSmall, p.sk.pal.text)
	p.y += p.u(48)
}

func (p *pageCtx) drawComments() {
	m := p.margin()
	v := p.card.Visual
	teacherLabel := v.TeacherLabel
	if teacherLabel == "" {
		teacherLabel = "Class Teacher"
	}
	principalLabel := v.PrincipalLabel
	if principalLabel == "" {
		principalLabel = "Principal"
	}

	p.c.text(m, p.y+p.u(14), "REMARKS", faceTitle, p.sk.pal.accent)
	p.y += p.u(22)
	p.c.text(m, p.y+p.u(16), teacherLabel+": "+truncate(faceBody, Sanitize(p.card.Comments.TeacherRemark), p.c.w-2*m-textWidth(faceBody, teacherLabel)), faceBody, p.sk.pal.text)
	p.y += p.u(24)
	p.c.text(m, p.y+p.u(16), principalLabel+": "+truncate(faceBody, Sanitize(p.card.Comments.PrincipalRemark), p.c.w-2*m-textWidth(faceBody, principalLabel)), faceBody, p.sk.pal.text)
	p.y += p.u(40)

	// signature rules
	sigW := p.u(160)
	sigY := p.y + p.u(20)
	p.c.hline(m, m+sigW, sigY, p.sk.pal.subtle)
	p.c.text(m, sigY+p.u(16), teacherLabel, faceSmall, p.sk.pal.subtle)
	p.c.hline(p.c.w-m-sigW, p.c.w-m, sigY, p.sk.pal.subtle)
	p.c.text(p.c.w-m-sigW, sigY+p.u(16), principalLabel, faceSmall, p.sk.pal.subtle)
	p.y = sigY + p.u(30)
}

func (p *pageCtx) drawFooter() {
	label := fmt.Sprintf("Page %d of %d", p.pageNo, p.pageCount)
	p.c.textCentered(p.c.w/2, p.c.h-p.u(20), label, faceSmall, p.sk.pal.subtle)
}

// overlayWatermark composites a large translucent diagonal tag across the
// page for provenance signaling.
func overlayWatermark(page image.Image, tag string, tint color.RGBA) image.Image {
	stampW := textWidth(faceTitle, tag) + 8
	stamp := image.NewRGBA(image.Rect(0, 0, stampW, 24))
	(&canvas{img: stamp, w: stampW, h: 24}).text(4, 18, tag, faceTitle, tint)

	bounds := page.Bounds()
	targetW := bounds.Dx() * 6 / 10
	targetH := 24 * targetW / stampW
	scaled := imaging.Resize(stamp, targetW, targetH, imaging.Linear)
	rotated := imaging.Rotate(scaled, 30, color.NRGBA{0, 0, 0, 0})

	pos := image.Pt(
		bounds.Min.X+(bounds.Dx()-rotated.Bounds().Dx())/2,
		bounds.Min.Y+(bounds.Dy()-rotated.Bounds().Dy())/2,
	)
	return imaging.Overlay(page, rotated, pos, 0.14)
}
