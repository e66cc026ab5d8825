package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/config"
)

// ConflictEngine evaluates candidate slots against the existing slot set of
// a timetable. It is pure: no storage or network access, so the same engine
// serves interactive mutations, the auto-generation pass, and the aggregate
// conflict listing.
type ConflictEngine struct {
	cfg      config.TimetableConfig
	workload *WorkloadCalculator
}

// NewConflictEngine constructs the engine with scheduling policy caps.
func NewConflictEngine(cfg config.TimetableConfig, workload *WorkloadCalculator) *ConflictEngine {
	if workload == nil {
		workload = NewWorkloadCalculator(cfg)
	}
	return &ConflictEngine{cfg: cfg, workload: workload}
}

// Evaluate checks a candidate slot (new or moved) against the existing slot
// set. When updating, the caller must exclude the candidate's prior version
// from existing. class supplies the default-room policy and may be nil.
// strict promotes the consecutive-limit check to error severity.
//
// The returned order is stable: errors before warnings, then by conflict
// type, then by colliding slot id, so repeated evaluation of identical
// inputs yields identical output.
func (e *ConflictEngine) Evaluate(existing []models.TimetableSlot, candidate models.TimetableSlot, class *models.SchoolClass, strict bool) []models.Conflict {
	conflicts := make([]models.Conflict, 0)

	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		if other.DayOfWeek != candidate.DayOfWeek || other.Period != candidate.Period {
			continue
		}
		if other.TeacherID == candidate.TeacherID {
			conflicts = append(conflicts, models.Conflict{
				Type:     models.ConflictTeacherDoubleBooked,
				Severity: models.SeverityError,
				Detail:   fmt.Sprintf("teacher %s is already scheduled on day %d period %d", candidate.TeacherID, candidate.DayOfWeek, candidate.Period),
				SlotIDs:  []string{other.ID},
			})
		}
		if other.ClassID == candidate.ClassID {
			conflicts = append(conflicts, models.Conflict{
				Type:     models.ConflictClassDoubleBooked,
				Severity: models.SeverityError,
				Detail:   fmt.Sprintf("class %s is already scheduled on day %d period %d", candidate.ClassID, candidate.DayOfWeek, candidate.Period),
				SlotIDs:  []string{other.ID},
			})
		}
		if candidate.Room != "" && other.Room != "" && strings.EqualFold(other.Room, candidate.Room) {
			conflicts = append(conflicts, models.Conflict{
				Type:     models.ConflictRoomDoubleBooked,
				Severity: models.SeverityError,
				Detail:   fmt.Sprintf("room %s is already booked on day %d period %d", candidate.Room, candidate.DayOfWeek, candidate.Period),
				SlotIDs:  []string{other.ID},
			})
		}
	}

	if class != nil && class.DefaultRoom != nil && *class.DefaultRoom != "" &&
		candidate.Room != "" && !strings.EqualFold(candidate.Room, *class.DefaultRoom) {
		conflicts = append(conflicts, models.Conflict{
			Type:     models.ConflictRoomMismatch,
			Severity: models.SeverityWarning,
			Detail:   fmt.Sprintf("room %s differs from class default room %s", candidate.Room, *class.DefaultRoom),
		})
	}

	conflicts = append(conflicts, e.workloadConflicts(existing, candidate, strict)...)

	sortConflicts(conflicts)
	return conflicts
}

// workloadConflicts derives the weekly and consecutive cap checks from the
// candidate teacher's resulting slot set.
func (e *ConflictEngine) workloadConflicts(existing []models.TimetableSlot, candidate models.TimetableSlot, strict bool) []models.Conflict {
	teacherSlots := make([]models.TimetableSlot, 0, len(existing)+1)
	for _, slot := range existing {
		if slot.ID != candidate.ID && slot.TeacherID == candidate.TeacherID {
			teacherSlots = append(teacherSlots, slot)
		}
	}
	teacherSlots = append(teacherSlots, candidate)

	summary := e.workload.Summarize(teacherSlots, candidate.TeacherID)

	var conflicts []models.Conflict
	if summary.ExceedsWeeklyLimit {
		conflicts = append(conflicts, models.Conflict{
			Type:     models.ConflictWeeklyLimitExceeded,
			Severity: models.SeverityWarning,
			Detail:   fmt.Sprintf("teacher %s would have %d periods, exceeding the weekly cap of %d", candidate.TeacherID, summary.TotalPeriods, e.cfg.WeeklyPeriodCap),
		})
	}
	if summary.ExceedsConsecutiveLimit {
		severity := models.SeverityWarning
		if strict || e.cfg.StrictConsecutive {
			severity = models.SeverityError
		}
		conflicts = append(conflicts, models.Conflict{
			Type:     models.ConflictConsecutiveLimitExceeded,
			Severity: severity,
			Detail:   fmt.Sprintf("teacher %s would teach %d consecutive periods, exceeding the limit of %d", candidate.TeacherID, summary.MaxConsecutive, e.cfg.MaxConsecutivePeriods),
		})
	}
	return conflicts
}

// EvaluateAll re-evaluates the whole slot set pairwise and groups conflicts
// by slot id, for the aggregate conflict summary view.
func (e *ConflictEngine) EvaluateAll(slots []models.TimetableSlot, classesByID map[string]*models.SchoolClass, strict bool) map[string][]models.Conflict {
	result := make(map[string][]models.Conflict)
	for i, slot := range slots {
		others := make([]models.TimetableSlot, 0, len(slots)-1)
		others = append(others, slots[:i]...)
		others = append(others, slots[i+1:]...)
		conflicts := e.Evaluate(others, slot, classesByID[slot.ClassID], strict)
		if len(conflicts) > 0 {
			result[slot.ID] = conflicts
		}
	}
	return result
}

// sortConflicts orders errors before warnings, then by type, then by the
// first colliding slot id.
func sortConflicts(conflicts []models.Conflict) {
	rank := func(c models.Conflict) int {
		if c.Severity == models.SeverityError {
			return 0
		}
		return 1
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		if rank(conflicts[i]) != rank(conflicts[j]) {
			return rank(conflicts[i]) < rank(conflicts[j])
		}
		if conflicts[i].Type != conflicts[j].Type {
			return conflicts[i].Type < conflicts[j].Type
		}
		return firstSlotID(conflicts[i]) < firstSlotID(conflicts[j])
	})
}

func firstSlotID(c models.Conflict) string {
	if len(c.SlotIDs) == 0 {
		return ""
	}
	return c.SlotIDs[0]
}
