package dto

import "github.com/Rareminds-eym/skillpassport-sub038/internal/models"

// SlotResult is the typed outcome of a slot mutation. Committed is false
// when error-severity conflicts rejected the change; the conflict list is
// populated either way so callers can render the specific collisions.
type SlotResult struct {
	Slot      *models.TimetableSlot `json:"slot,omitempty"`
	Conflicts []models.Conflict     `json:"conflicts"`
	Committed bool                  `json:"committed"`
}

// SkippedSlot records a generated placement that could not be committed.
// Conflicts carries the blocking violations; Reason covers placements that
// never reached evaluation, such as a period with no clock window.
type SkippedSlot struct {
	TeacherID string            `json:"teacher_id"`
	ClassID   string            `json:"class_id"`
	DayOfWeek int               `json:"day_of_week"`
	Period    int               `json:"period_number"`
	Conflicts []models.Conflict `json:"conflicts,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// GenerationReport summarises an auto-generation pass. Skipped placements
// are reported, never silently dropped.
type GenerationReport struct {
	Placed  []models.TimetableSlot `json:"placed"`
	Skipped []SkippedSlot          `json:"skipped"`
}

// PublishResult acknowledges a publish and carries the outstanding conflict
// set as a last-chance warning. Publishing is never blocked by it.
type PublishResult struct {
	Timetable            *models.Timetable            `json:"timetable"`
	OutstandingConflicts map[string][]models.Conflict `json:"outstanding_conflicts,omitempty"`
}

// TeacherScheduleView is the per-teacher grid payload: slots ordered by day
// and period plus the derived workload summary.
type TeacherScheduleView struct {
	Slots    []models.TimetableSlot `json:"slots"`
	Workload models.WorkloadSummary `json:"workload"`
}
