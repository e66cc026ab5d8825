package models

import "fmt"

// PeriodWindow is the fixed wall-clock range of one numbered period.
type PeriodWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// periodClock maps period numbers to their fixed time windows: ten one-hour
// blocks from 08:00, with a half-hour break after period 4.
var periodClock = map[int]PeriodWindow{
	1:  {Start: "08:00", End: "09:00"},
	2:  {Start: "09:00", End: "10:00"},
	3:  {Start: "10:00", End: "11:00"},
	4:  {Start: "11:00", End: "12:00"},
	5:  {Start: "12:30", End: "13:30"},
	6:  {Start: "13:30", End: "14:30"},
	7:  {Start: "14:30", End: "15:30"},
	8:  {Start: "15:30", End: "16:30"},
	9:  {Start: "16:30", End: "17:30"},
	10: {Start: "17:30", End: "18:30"},
}

// PeriodTimes resolves the start and end time for a period number.
func PeriodTimes(period int) (PeriodWindow, error) {
	window, ok := periodClock[period]
	if !ok {
		return PeriodWindow{}, fmt.Errorf("period %d has no configured time window", period)
	}
	return window, nil
}
