package models

// RosterEntry identifies one enrolled student within a class and term.
type RosterEntry struct {
	StudentID   string `db:"student_id" json:"student_id"`
	FullName    string `db:"full_name" json:"full_name"`
	AdmissionNo string `db:"admission_no" json:"admission_no"`
	ClassID     string `db:"class_id" json:"class_id"`
	ClassName   string `db:"class_name" json:"class_name"`
	ArmName     string `db:"arm_name" json:"arm_name"`
}

// StudentFacts joins a roster entry with the derived billing and report
// facts computed once at batch-session start. Read-only during a batch.
type StudentFacts struct {
	RosterEntry
	HasDebt           bool     `db:"has_debt" json:"has_debt"`
	OutstandingAmount float64  `db:"outstanding_amount" json:"outstanding_amount"`
	AverageScore      *float64 `db:"average_score" json:"average_score,omitempty"`
	ReportExists      bool     `db:"report_exists" json:"report_exists"`
}

// IneligibleReason buckets an excluded student by the first failing predicate.
type IneligibleReason string

const (
	ReasonOutstandingDebt IneligibleReason = "OUTSTANDING_DEBT"
	ReasonNoReport        IneligibleReason = "NO_REPORT"
)

// IneligibleStudent pairs excluded facts with the exclusion reason.
type IneligibleStudent struct {
	StudentFacts
	Reason IneligibleReason `json:"reason"`
}

// EligibilityPartition is the disjoint split of a roster into eligible and
// ineligible students. The union always equals the full roster.
type EligibilityPartition struct {
	Eligible   []StudentFacts      `json:"eligible"`
	Ineligible []IneligibleStudent `json:"ineligible"`
}
