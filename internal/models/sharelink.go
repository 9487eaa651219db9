package models

import "time"

// ShareLink grants time-limited public read access to one student's report
// for one term. The token is opaque; the slug is cosmetic only and must not
// be trusted for authorization.
type ShareLink struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Token     string    `db:"token" json:"token"`
	Slug      string    `db:"slug" json:"slug"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Published bool      `db:"published" json:"published"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Live reports whether the link is still usable at the given instant.
func (l *ShareLink) Live(now time.Time) bool {
	if l == nil {
		return false
	}
	return now.Before(l.ExpiresAt)
}
