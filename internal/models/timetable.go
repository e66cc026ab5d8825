package models

import "time"

// TimetableStatus represents the lifecycle phase of a timetable version.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "draft"
	TimetableStatusPublished TimetableStatus = "published"
)

// Timetable is one versioned schedule for an (org, academic year, term)
// tuple. Exactly one draft may be actively edited per tuple; publishing is
// terminal.
type Timetable struct {
	ID           string          `db:"id" json:"id"`
	OrgID        string          `db:"org_id" json:"org_id"`
	AcademicYear string          `db:"academic_year" json:"academic_year"`
	Term         string          `db:"term" json:"term"`
	Status       TimetableStatus `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Editable reports whether slot mutations are allowed.
func (t *Timetable) Editable() bool {
	return t != nil && t.Status == TimetableStatusDraft
}

// TimetableFilter describes query params for listing timetables.
type TimetableFilter struct {
	OrgID        string
	AcademicYear string
	Term         string
	Status       TimetableStatus
	Page         int
	PageSize     int
}
