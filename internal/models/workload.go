package models

// WorkloadSummary aggregates per-teacher load within one timetable. Derived,
// never persisted.
type WorkloadSummary struct {
	TeacherID               string `json:"teacher_id"`
	TotalPeriods            int    `json:"total_periods"`
	MaxConsecutive          int    `json:"max_consecutive"`
	ExceedsWeeklyLimit      bool   `json:"exceeds_weekly_limit"`
	ExceedsConsecutiveLimit bool   `json:"exceeds_consecutive_limit"`
}
