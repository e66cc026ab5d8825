package service

import (
	"sort"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/config"
)

// WorkloadCalculator derives per-teacher aggregate metrics from a slot set.
// Pure function of its input; caps come from configuration.
type WorkloadCalculator struct {
	weeklyCap      int
	maxConsecutive int
}

// NewWorkloadCalculator constructs the calculator with policy caps.
func NewWorkloadCalculator(cfg config.TimetableConfig) *WorkloadCalculator {
	return &WorkloadCalculator{
		weeklyCap:      cfg.WeeklyPeriodCap,
		maxConsecutive: cfg.MaxConsecutivePeriods,
	}
}

// Summarize computes the workload summary for one teacher from a slot set.
// Slots belonging to other teachers are ignored, so callers may pass either
// a pre-filtered or a full timetable slot set.
func (w *WorkloadCalculator) Summarize(slots []models.TimetableSlot, teacherID string) models.WorkloadSummary {
	periodsByDay := make(map[int][]int)
	total := 0
	for _, slot := range slots {
		if slot.TeacherID != teacherID {
			continue
		}
		total++
		periodsByDay[slot.DayOfWeek] = append(periodsByDay[slot.DayOfWeek], slot.Period)
	}

	longest := 0
	for _, periods := range periodsByDay {
		if run := longestRun(periods); run > longest {
			longest = run
		}
	}

	return models.WorkloadSummary{
		TeacherID:               teacherID,
		TotalPeriods:            total,
		MaxConsecutive:          longest,
		ExceedsWeeklyLimit:      w.weeklyCap > 0 && total > w.weeklyCap,
		ExceedsConsecutiveLimit: w.maxConsecutive > 0 && longest > w.maxConsecutive,
	}
}

// longestRun returns the length of the longest streak of numerically
// contiguous periods within one day.
func longestRun(periods []int) int {
	if len(periods) == 0 {
		return 0
	}
	sorted := make([]int, len(periods))
	copy(sorted, periods)
	sort.Ints(sorted)

	longest, current := 1, 1
	for i := 1; i < len(sorted); i++ {
		switch sorted[i] - sorted[i-1] {
		case 0:
			// duplicate period, same streak
		case 1:
			current++
		default:
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}
