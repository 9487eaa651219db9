package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edubridge/reportcard-api/internal/models"
)

// RosterRepository loads enrollment rosters joined with the derived billing
// and report-existence facts.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListFacts returns the full roster for a class+term with per-student facts
// computed in one pass. The result is treated as read-only for the duration
// of a batch session.
func (r *RosterRepository) ListFacts(ctx context.Context, classID, termID string) ([]models.StudentFacts, error) {
	const query = `SELECT s.id AS student_id,
       s.full_name,
       s.admission_no,
       c.id AS class_id,
       c.name AS class_name,
       COALESCE(c.arm_name, '') AS arm_name,
       COALESCE(inv.outstanding, 0) AS outstanding_amount,
       COALESCE(inv.outstanding, 0) > 0 AS has_debt,
       rep.student_id IS NOT NULL AS report_exists,
       rep.average_score AS average_score
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN classes c ON c.id = e.class_id
LEFT JOIN (
    SELECT student_id, SUM(amount_due - amount_paid) AS outstanding
    FROM invoices
    WHERE term_id = $2 AND status <> 'PAID'
    GROUP BY student_id
) inv ON inv.student_id = s.id
LEFT JOIN reports rep ON rep.student_id = s.id AND rep.term_id = $2
WHERE e.class_id = $1 AND e.term_id = $2
ORDER BY s.full_name ASC`
	var facts []models.StudentFacts
	if err := r.db.SelectContext(ctx, &facts, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list roster facts: %w", err)
	}
	return facts, nil
}

// GetEntry returns the roster entry for one student within a term.
func (r *RosterRepository) GetEntry(ctx context.Context, studentID, termID string) (*models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id,
       s.full_name,
       s.admission_no,
       c.id AS class_id,
       c.name AS class_name,
       COALESCE(c.arm_name, '') AS arm_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN classes c ON c.id = e.class_id
WHERE e.student_id = $1 AND e.term_id = $2`
	var entry models.RosterEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("get roster entry: %w", err)
	}
	return &entry, nil
}
