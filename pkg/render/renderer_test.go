package render

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/reportcard-api/internal/models"
)

func subjects(n int) []models.SubjectRecord {
	out := make([]models.SubjectRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.SubjectRecord{
			Name:   fmt.Sprintf("Subject %d", i+1),
			Total:  float64(50 + i),
			Grade:  "B",
			Remark: "Good",
		})
	}
	return out
}

func sampleCard(subjectCount int) *models.ReportCard {
	return &models.ReportCard{
		Student: models.StudentIdentity{FullName: "Ada Obi", AdmissionNo: "A-001", ClassName: "Grade 5", ArmName: "Blue"},
		School:  models.SchoolIdentity{Name: "Hillcrest Academy", DisplayName: "Hillcrest Academy", Address: "12 Hill Road", Motto: "Light and Truth"},
		Term:    models.TermIdentity{Session: "2025/2026", Term: "First Term"},
		Subjects: subjects(subjectCount),
		Summary:  models.ScoreSummary{TotalScore: 500, AverageScore: 71.4},
		Comments: models.Comments{TeacherRemark: "Keep it up", PrincipalRemark: "A fine result"},
	}
}

func TestSplitSubjectsIdempotence(t *testing.T) {
	capacity := 12
	for _, n := range []int{0, 1, capacity, capacity + 1, 3 * capacity} {
		in := subjects(n)
		chunks := SplitSubjects(in, capacity)

		var flat []models.SubjectRecord
		for _, chunk := range chunks {
			require.LessOrEqual(t, len(chunk), capacity)
			flat = append(flat, chunk...)
		}
		assert.Equal(t, in, append([]models.SubjectRecord{}, flat...), "n=%d", n)
		if n == 0 {
			assert.Len(t, chunks, 1)
		}
	}
}

func TestRenderPageCountFollowsCapacity(t *testing.T) {
	r := NewCanvasRenderer(Options{DPI: 96})
	capacity, err := Capacity(VariantClassic)
	require.NoError(t, err)

	cases := map[int]int{
		0:            1,
		1:            1,
		capacity:     1,
		capacity + 1: 2,
	}
	for n, wantPages := range cases {
		pages, err := r.Render(sampleCard(n), VariantClassic, models.WatermarkNone)
		require.NoError(t, err)
		assert.Len(t, pages, wantPages, "subjects=%d", n)
	}
}

func TestRenderFixedPageGeometry(t *testing.T) {
	r := NewCanvasRenderer(Options{DPI: 96})
	pages, err := r.Render(sampleCard(3), VariantModern, models.WatermarkDraft)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	bounds := pages[0].Bounds()
	assert.Equal(t, 794, bounds.Dx())
	assert.Equal(t, 1122, bounds.Dy())
}

func TestRenderAllVariantsAcceptSameCard(t *testing.T) {
	r := NewCanvasRenderer(Options{})
	card := sampleCard(5)
	card.Attendance = &models.AttendanceSummary{Present: 50, Absent: 2, Total: 52, Rate: 96.2}
	for _, variant := range Variants() {
		pages, err := r.Render(card, variant, models.WatermarkFinal)
		require.NoError(t, err, variant)
		assert.NotEmpty(t, pages, variant)
	}
}

func TestRenderUnknownVariant(t *testing.T) {
	r := NewCanvasRenderer(Options{})
	_, err := r.Render(sampleCard(2), "vaporwave", models.WatermarkNone)
	assert.Error(t, err)
}

func TestRenderNilCard(t *testing.T) {
	r := NewCanvasRenderer(Options{})
	_, err := r.Render(nil, VariantClassic, models.WatermarkNone)
	assert.Error(t, err)
}

func TestComponentFallbackBucketing(t *testing.T) {
	subj := models.SubjectRecord{Components: map[string]float64{
		"First CA":   10,
		"Second CA":  12,
		"Final Exam": 55,
	}}
	assert.Equal(t, "55", componentValue(subj, "Exam", true))
	assert.Equal(t, "22", componentValue(subj, "CA", true))
}
