package models

// RawReport is an unnormalized report payload as stored by any of the
// historic producers. Field naming varies between camelCase and snake_case
// with several synonyms per semantic field; the normalizer owns resolution.
type RawReport map[string]interface{}

// ReportCard is the canonical record consumed by rendering. Every numeric
// field defaults to zero or a sentinel so renderers never see a missing
// value.
type ReportCard struct {
	Student    StudentIdentity       `json:"student"`
	School     SchoolIdentity        `json:"school"`
	Term       TermIdentity          `json:"term"`
	Subjects   []SubjectRecord       `json:"subjects"`
	Summary    ScoreSummary          `json:"summary"`
	Comments   Comments              `json:"comments"`
	Attendance *AttendanceSummary    `json:"attendance,omitempty"`
	Components []ComponentDefinition `json:"components,omitempty"`
	Visual     VisualConfig          `json:"visual"`
}

// StudentIdentity block of the canonical record.
type StudentIdentity struct {
	FullName    string `json:"full_name"`
	AdmissionNo string `json:"admission_no"`
	ClassName   string `json:"class_name"`
	ArmName     string `json:"arm_name,omitempty"`
}

// SchoolIdentity carries branding resolved from school and class config.
type SchoolIdentity struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Motto       string `json:"motto"`
	LogoURL     string `json:"logo_url"`
}

// TermIdentity labels the academic session and term.
type TermIdentity struct {
	Session string `json:"session"`
	Term    string `json:"term"`
}

// SubjectRecord is one graded subject row.
type SubjectRecord struct {
	Name       string             `json:"name"`
	Total      float64            `json:"total"`
	Grade      string             `json:"grade"`
	Remark     string             `json:"remark"`
	Components map[string]float64 `json:"components,omitempty"`
	Rank       *int               `json:"rank,omitempty"`
}

// ScoreSummary aggregates the subject list. TotalScore and AverageScore are
// always recomputed from the subjects, never trusted from upstream.
type ScoreSummary struct {
	TotalScore      float64  `json:"total_score"`
	AverageScore    float64  `json:"average_score"`
	PositionInArm   *int     `json:"position_in_arm,omitempty"`
	ArmSize         int      `json:"arm_size"`
	PositionInLevel *int     `json:"position_in_level,omitempty"`
	LevelSize       int      `json:"level_size"`
	GPA             string   `json:"gpa"`
	Percentile      *float64 `json:"percentile,omitempty"`
}

// Comments block. PrincipalRemark falls back to a literal placeholder when
// absent upstream.
type Comments struct {
	TeacherRemark   string `json:"teacher_remark"`
	PrincipalRemark string `json:"principal_remark"`
}

// AttendanceSummary is the optional attendance block. Rate is expressed
// 0-100 and is 0 when Total is 0.
type AttendanceSummary struct {
	Present   int     `json:"present"`
	Absent    int     `json:"absent"`
	Late      int     `json:"late"`
	Excused   int     `json:"excused"`
	Unexcused int     `json:"unexcused"`
	Total     int     `json:"total"`
	Rate      float64 `json:"rate"`
}

// ComponentDefinition declares a named assessment component and its maximum
// score, driving per-subject column layout.
type ComponentDefinition struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
}

// VisualConfig selects the layout skin for rendering.
type VisualConfig struct {
	Variant            string `json:"variant"`
	ThemeColor         string `json:"theme_color"`
	LogoURL            string `json:"logo_url,omitempty"`
	SchoolNameOverride string `json:"school_name_override,omitempty"`
	PrincipalLabel     string `json:"principal_label"`
	TeacherLabel       string `json:"teacher_label"`
}
