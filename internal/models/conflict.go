package models

// ConflictType identifies the rule a candidate slot violates.
type ConflictType string

const (
	ConflictTeacherDoubleBooked      ConflictType = "teacher_double_booked"
	ConflictClassDoubleBooked        ConflictType = "class_double_booked"
	ConflictRoomDoubleBooked         ConflictType = "room_double_booked"
	ConflictWeeklyLimitExceeded      ConflictType = "weekly_limit_exceeded"
	ConflictConsecutiveLimitExceeded ConflictType = "consecutive_limit_exceeded"
	ConflictRoomMismatch             ConflictType = "room_mismatch"
)

// ConflictSeverity distinguishes blocking errors from acknowledgeable
// warnings.
type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "error"
	SeverityWarning ConflictSeverity = "warning"
)

// Conflict describes one detected violation produced by evaluating a
// candidate slot against existing slots.
type Conflict struct {
	Type     ConflictType     `json:"type"`
	Severity ConflictSeverity `json:"severity"`
	Detail   string           `json:"detail"`
	SlotIDs  []string         `json:"slot_ids,omitempty"`
}

// IsError reports whether the conflict blocks commit.
func (c Conflict) IsError() bool {
	return c.Severity == SeverityError
}

// HasErrors reports whether any conflict in the list is error severity.
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.IsError() {
			return true
		}
	}
	return false
}
