package service

import (
	"strconv"
	"strings"

	"github.com/edubridge/reportcard-api/internal/models"
)

// Literal fallbacks used when neither class nor school config supplies a
// value. The school name placeholder mirrors what historic payloads shipped.
const (
	fallbackSchoolName      = "School Name"
	fallbackPrincipalLabel  = "Principal"
	fallbackTeacherLabel    = "Class Teacher"
	fallbackPrincipalRemark = "A commendable effort. Keep it up."
)

// Synonym tables: ordered key-precedence lists per canonical field. Raw
// payloads were produced by several generations of the upstream app, mixing
// camelCase and snake_case with drifting names; resolution always takes the
// first non-null candidate, camelCase variants listed ahead of snake_case.
var (
	keysSession = []string{"session", "sessionLabel", "session_label", "academicSession", "academic_session"}
	keysTerm    = []string{"termLabel", "term_label", "termName", "term_name", "term"}

	keysSubjects = []string{"subjects", "subjectRecords", "subject_records", "results", "scores"}

	keysSubjectName   = []string{"name", "subjectName", "subject_name", "subject"}
	keysSubjectTotal  = []string{"total", "totalScore", "total_score", "score"}
	keysSubjectGrade  = []string{"grade", "letterGrade", "letter_grade"}
	keysSubjectRemark = []string{"remark", "comment", "teacherRemark", "teacher_remark"}
	keysSubjectComps  = []string{"components", "componentScores", "component_scores", "breakdown"}
	keysSubjectRank   = []string{"rank", "position", "subjectPosition", "subject_position"}

	keysPositionInArm   = []string{"positionInArm", "position_in_arm", "positionInClass", "position_in_class", "armPosition", "arm_position"}
	keysArmSize         = []string{"armSize", "arm_size", "totalInArm", "total_in_arm", "classSize", "class_size"}
	keysPositionInLevel = []string{"positionInLevel", "position_in_grade", "gradeLevelPosition"}
	keysLevelSize       = []string{"levelSize", "level_size", "totalInLevel", "total_in_level", "gradeSize", "grade_size"}
	keysGPA             = []string{"gpa", "gradePointAverage", "grade_point_average"}
	keysPercentile      = []string{"percentile"}

	keysTeacherRemark   = []string{"teacherRemark", "teacher_remark", "teacherComment", "teacher_comment", "classTeacherRemark", "class_teacher_remark"}
	keysPrincipalRemark = []string{"principalRemark", "principal_remark", "principalComment", "principal_comment", "headTeacherRemark", "head_teacher_remark"}

	keysAttendance          = []string{"attendance", "attendanceSummary", "attendance_summary"}
	keysAttendancePresent   = []string{"present", "daysPresent", "days_present"}
	keysAttendanceAbsent    = []string{"absent", "daysAbsent", "days_absent"}
	keysAttendanceLate      = []string{"late", "daysLate", "days_late"}
	keysAttendanceExcused   = []string{"excused", "excusedAbsences", "excused_absences"}
	keysAttendanceUnexcused = []string{"unexcused", "unexcusedAbsences", "unexcused_absences"}
	keysAttendanceTotal     = []string{"total", "totalDays", "total_days", "schoolDays", "school_days"}
)

// Normalizer maps raw heterogeneous report payloads into the canonical
// report-card record, merging school and class configuration overlays.
type Normalizer struct {
	defaultVariant string
}

// NewNormalizer constructs a Normalizer. defaultVariant applies when neither
// class nor school config names one.
func NewNormalizer(defaultVariant string) *Normalizer {
	if defaultVariant == "" {
		defaultVariant = "classic"
	}
	return &Normalizer{defaultVariant: defaultVariant}
}

// Normalize produces a canonical record from one raw payload plus roster
// identity and the configuration overlays. A malformed or missing subject
// list yields an empty subjects slice, never an error: input-data defects
// are repaired by substitution, not surfaced.
func (n *Normalizer) Normalize(raw models.RawReport, entry models.RosterEntry, school *models.SchoolConfig, class *models.ClassConfig) *models.ReportCard {
	card := &models.ReportCard{
		Student: models.StudentIdentity{
			FullName:    entry.FullName,
			AdmissionNo: entry.AdmissionNo,
			ClassName:   entry.ClassName,
			ArmName:     entry.ArmName,
		},
		Term: models.TermIdentity{
			Session: lookupString(raw, keysSession),
			Term:    lookupString(raw, keysTerm),
		},
		Subjects: n.normalizeSubjects(raw),
	}

	// Totals and averages come from the subject list, never from upstream
	// aggregates that may be stale.
	var total float64
	for _, subj := range card.Subjects {
		total += subj.Total
	}
	card.Summary = models.ScoreSummary{
		TotalScore:      total,
		PositionInArm:   lookupIntPtr(raw, keysPositionInArm),
		ArmSize:         lookupInt(raw, keysArmSize),
		PositionInLevel: lookupIntPtr(raw, keysPositionInLevel),
		LevelSize:       lookupInt(raw, keysLevelSize),
		GPA:             lookupString(raw, keysGPA),
		Percentile:      lookupFloatPtr(raw, keysPercentile),
	}
	if len(card.Subjects) > 0 {
		card.Summary.AverageScore = total / float64(len(card.Subjects))
	}

	card.Comments = models.Comments{
		TeacherRemark:   lookupString(raw, keysTeacherRemark),
		PrincipalRemark: lookupString(raw, keysPrincipalRemark),
	}
	if card.Comments.PrincipalRemark == "" {
		card.Comments.PrincipalRemark = fallbackPrincipalRemark
	}

	card.Attendance = normalizeAttendance(raw)
	card.School, card.Visual, card.Components = n.mergeConfig(school, class)
	return card
}

func (n *Normalizer) normalizeSubjects(raw models.RawReport) []models.SubjectRecord {
	value, ok := lookup(raw, keysSubjects)
	if !ok {
		return []models.SubjectRecord{}
	}
	list, ok := value.([]interface{})
	if !ok {
		return []models.SubjectRecord{}
	}
	subjects := make([]models.SubjectRecord, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		subject := models.SubjectRecord{
			Name:   lookupString(entry, keysSubjectName),
			Total:  lookupFloat(entry, keysSubjectTotal),
			Grade:  lookupString(entry, keysSubjectGrade),
			Remark: lookupString(entry, keysSubjectRemark),
			Rank:   lookupIntPtr(entry, keysSubjectRank),
		}
		if comps, ok := lookup(entry, keysSubjectComps); ok {
			if compMap, ok := comps.(map[string]interface{}); ok && len(compMap) > 0 {
				subject.Components = make(map[string]float64, len(compMap))
				for name, score := range compMap {
					if v, ok := asFloat(score); ok {
						subject.Components[name] = v
					}
				}
			}
		}
		if subject.Name == "" {
			continue
		}
		subjects = append(subjects, subject)
	}
	return subjects
}

func normalizeAttendance(raw models.RawReport) *models.AttendanceSummary {
	value, ok := lookup(raw, keysAttendance)
	if !ok {
		return nil
	}
	block, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	att := &models.AttendanceSummary{
		Present:   lookupInt(block, keysAttendancePresent),
		Absent:    lookupInt(block, keysAttendanceAbsent),
		Late:      lookupInt(block, keysAttendanceLate),
		Excused:   lookupInt(block, keysAttendanceExcused),
		Unexcused: lookupInt(block, keysAttendanceUnexcused),
		Total:     lookupInt(block, keysAttendanceTotal),
	}
	if att.Total > 0 {
		att.Rate = float64(att.Present) / float64(att.Total) * 100
	}
	return att
}

// mergeConfig resolves branding and layout: class overrides beat school
// defaults, which beat the literal fallbacks.
func (n *Normalizer) mergeConfig(school *models.SchoolConfig, class *models.ClassConfig) (models.SchoolIdentity, models.VisualConfig, []models.ComponentDefinition) {
	identity := models.SchoolIdentity{Name: fallbackSchoolName}
	visual := models.VisualConfig{
		Variant:        n.defaultVariant,
		PrincipalLabel: fallbackPrincipalLabel,
		TeacherLabel:   fallbackTeacherLabel,
	}

	if school != nil {
		if school.Name != "" {
			identity.Name = school.Name
		}
		identity.DisplayName = school.DisplayName
		identity.Address = school.Address
		identity.Motto = school.Motto
		identity.LogoURL = school.LogoURL
		if school.ThemeColor != "" {
			visual.ThemeColor = school.ThemeColor
		}
		if school.DefaultVariant != "" {
			visual.Variant = school.DefaultVariant
		}
		if school.PrincipalLabel != "" {
			visual.PrincipalLabel = school.PrincipalLabel
		}
		if school.TeacherLabel != "" {
			visual.TeacherLabel = school.TeacherLabel
		}
	}

	var components []models.ComponentDefinition
	if class != nil {
		if class.Variant != nil && *class.Variant != "" {
			visual.Variant = *class.Variant
		}
		if class.ThemeColor != nil && *class.ThemeColor != "" {
			visual.ThemeColor = *class.ThemeColor
		}
		if class.LogoURL != nil && *class.LogoURL != "" {
			identity.LogoURL = *class.LogoURL
			visual.LogoURL = *class.LogoURL
		}
		if class.SchoolNameOverride != nil && *class.SchoolNameOverride != "" {
			visual.SchoolNameOverride = *class.SchoolNameOverride
			identity.DisplayName = *class.SchoolNameOverride
		}
		if class.PrincipalLabel != nil && *class.PrincipalLabel != "" {
			visual.PrincipalLabel = *class.PrincipalLabel
		}
		if class.TeacherLabel != nil && *class.TeacherLabel != "" {
			visual.TeacherLabel = *class.TeacherLabel
		}
		if len(class.Components) > 0 {
			components = append(components, class.Components...)
		}
	}
	return identity, visual, components
}

// lookup returns the first non-null value among the candidate keys.
func lookup(raw map[string]interface{}, keys []string) (interface{}, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func lookupString(raw map[string]interface{}, keys []string) string {
	value, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func lookupFloat(raw map[string]interface{}, keys []string) float64 {
	value, ok := lookup(raw, keys)
	if !ok {
		return 0
	}
	f, _ := asFloat(value)
	return f
}

func lookupInt(raw map[string]interface{}, keys []string) int {
	return int(lookupFloat(raw, keys))
}

func lookupIntPtr(raw map[string]interface{}, keys []string) *int {
	value, ok := lookup(raw, keys)
	if !ok {
		return nil
	}
	f, ok := asFloat(value)
	if !ok {
		return nil
	}
	i := int(f)
	return &i
}

func lookupFloatPtr(raw map[string]interface{}, keys []string) *float64 {
	value, ok := lookup(raw, keys)
	if !ok {
		return nil
	}
	f, ok := asFloat(value)
	if !ok {
		return nil
	}
	return &f
}

// asFloat coerces JSON-decoded numerics, including numeric strings found in
// the oldest payload generation.
func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
