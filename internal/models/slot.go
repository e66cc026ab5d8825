package models

import "time"

// TimetableSlot is a single (teacher, class, subject, room) assignment at a
// (day, period) coordinate within one timetable version. Start and end times
// are denormalised from the period lookup table so a slot stays independently
// valid and movable without consulting a separate schedule template at read
// time.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	Room        string    `db:"room" json:"room"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	Period      int       `db:"period_number" json:"period_number"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SlotPatch carries the mutable fields of a slot for partial updates. Nil
// means "leave unchanged".
type SlotPatch struct {
	TeacherID   *string `json:"teacher_id,omitempty"`
	ClassID     *string `json:"class_id,omitempty"`
	SubjectName *string `json:"subject_name,omitempty"`
	Room        *string `json:"room,omitempty"`
	DayOfWeek   *int    `json:"day_of_week,omitempty"`
	Period      *int    `json:"period_number,omitempty"`
}

// Apply returns a copy of the slot with the patch applied.
func (p SlotPatch) Apply(slot TimetableSlot) TimetableSlot {
	if p.TeacherID != nil {
		slot.TeacherID = *p.TeacherID
	}
	if p.ClassID != nil {
		slot.ClassID = *p.ClassID
	}
	if p.SubjectName != nil {
		slot.SubjectName = *p.SubjectName
	}
	if p.Room != nil {
		slot.Room = *p.Room
	}
	if p.DayOfWeek != nil {
		slot.DayOfWeek = *p.DayOfWeek
	}
	if p.Period != nil {
		slot.Period = *p.Period
	}
	return slot
}
