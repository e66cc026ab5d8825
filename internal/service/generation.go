package service

import (
	"math/rand"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/models"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/config"
)

// PlannedSlot is one placement proposed by a generation strategy, before it
// has passed validation.
type PlannedSlot struct {
	TeacherID   string
	ClassID     string
	SubjectName string
	Room        string
	DayOfWeek   int
	Period      int
}

// GenerationStrategy plans bulk slot placements for a timetable. Strategies
// only propose; every planned slot still goes through the same conflict
// validation as an interactive mutation, so a strategy never needs to be
// conflict-aware itself. Implementations must be deterministic for a given
// seed and input ordering.
type GenerationStrategy interface {
	Plan(teachers []models.Teacher, classes []models.SchoolClass, subjects []models.Subject, cfg config.TimetableConfig, seed int64) []PlannedSlot
}

// RoundRobinStrategy distributes teachers across days and cycles periods and
// classes, bounded by the weekly period cap. The seed rotates each teacher's
// starting day so repeated runs with different seeds spread load differently
// while staying reproducible.
type RoundRobinStrategy struct{}

// NewRoundRobinStrategy constructs the default strategy.
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{}
}

// Plan produces up to WeeklyPeriodCap placements per active teacher.
func (s *RoundRobinStrategy) Plan(teachers []models.Teacher, classes []models.SchoolClass, subjects []models.Subject, cfg config.TimetableConfig, seed int64) []PlannedSlot {
	if len(teachers) == 0 || len(classes) == 0 {
		return nil
	}

	days := cfg.DaysPerWeek
	if days < 1 {
		days = 6
	}
	periods := cfg.PeriodsPerDay
	if periods < 1 {
		periods = 10
	}
	quota := cfg.WeeklyPeriodCap
	if quota < 1 || quota > days*periods {
		quota = days * periods
	}

	rng := rand.New(rand.NewSource(seed))
	dayOffset := rng.Intn(days)
	classOffset := rng.Intn(len(classes))

	var planned []PlannedSlot
	for ti, teacher := range teachers {
		if !teacher.Active {
			continue
		}
		for n := 0; n < quota; n++ {
			day := 1 + (dayOffset+ti+n/periods)%days
			period := 1 + n%periods
			class := classes[(classOffset+ti+n)%len(classes)]

			subjectName := ""
			if len(subjects) > 0 {
				subjectName = subjects[(ti+n)%len(subjects)].Name
			}
			room := ""
			if class.DefaultRoom != nil {
				room = *class.DefaultRoom
			}

			planned = append(planned, PlannedSlot{
				TeacherID:   teacher.ID,
				ClassID:     class.ID,
				SubjectName: subjectName,
				Room:        room,
				DayOfWeek:   day,
				Period:      period,
			})
		}
	}
	return planned
}
