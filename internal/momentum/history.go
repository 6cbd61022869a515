package momentum

import (
	"time"

	"github.com/lazypower/cadence/internal/store"
)

// DayMomentum is one point in a user's momentum time series.
type DayMomentum struct {
	Date     string `json:"date"`
	Momentum int    `json:"momentum"`
}

// History builds a day-by-day momentum series for a user, oldest first, one
// entry per calendar day ending today. Daily habits contribute their running
// accumulated total; weekly habits contribute the running total of week
// momenta, attributed to every day of each week. It is a pure read path:
// recomputing over the same stored records yields identical output.
func (s *Service) History(userID string, days int) ([]DayMomentum, error) {
	if days <= 0 {
		return nil, &ValidationError{Field: "days", Reason: "must be positive"}
	}

	end := s.today()
	start := AddDays(end, -(days - 1))
	series := make([]int, days)

	dayIndex := func(d time.Time) int {
		return int(d.Sub(start).Hours() / 24)
	}

	dailies, err := s.store.ListHabitsByKind(userID, store.KindDaily, false)
	if err != nil {
		return nil, err
	}
	for i := range dailies {
		if err := s.addDailyHistory(&dailies[i], start, end, series); err != nil {
			return nil, err
		}
	}

	weeklies, err := s.store.ListHabitsByKind(userID, store.KindWeekly, false)
	if err != nil {
		return nil, err
	}
	for i := range weeklies {
		if err := s.addWeeklyHistory(&weeklies[i], start, end, series, dayIndex); err != nil {
			return nil, err
		}
	}

	out := make([]DayMomentum, days)
	for d := 0; d < days; d++ {
		out[d] = DayMomentum{Date: FormatDate(AddDays(start, d)), Momentum: series[d]}
	}
	return out, nil
}

// addDailyHistory adds a daily habit's running accumulated total to the
// series: each day's bucket carries the sum of every record momentum up to
// and including that day, so days without records carry the last known value
// forward.
func (s *Service) addDailyHistory(habit *store.Habit, start, end time.Time, series []int) error {
	recs, err := s.store.ListRecordsThrough(habit.ID, FormatDate(end))
	if err != nil {
		return err
	}

	sum := 0
	i := 0
	for d := range series {
		date := FormatDate(AddDays(start, d))
		for i < len(recs) && recs[i].Date <= date {
			sum += recs[i].Momentum
			i++
		}
		series[d] += sum
	}
	return nil
}

// addWeeklyHistory replays a weekly habit's week-by-week momentum from its
// first record, accumulating across weeks and attributing each week's running
// total to every day-bucket inside that week. Week momenta are recomputed
// from completions rather than read from stored values, so the result does
// not depend on intermediate write order.
func (s *Service) addWeeklyHistory(habit *store.Habit, start, end time.Time, series []int, dayIndex func(time.Time) int) error {
	recs, err := s.store.ListRecordsThrough(habit.ID, FormatDate(end))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	first, err := ParseDate(recs[0].Date)
	if err != nil {
		return err
	}
	currentWeek := WeekStart(end)

	cum := 0
	missStreak := 0
	prevMet := false
	idx := 0

	for ws := WeekStart(first); !ws.After(currentWeek); ws = AddDays(ws, 7) {
		we := AddDays(ws, 6)
		completions := 0
		for idx < len(recs) && recs[idx].Date <= FormatDate(we) {
			completions += recs[idx].Completed
			idx++
		}

		met := completions >= habit.TargetCount
		open := ws.Equal(currentWeek) // the in-progress week is not yet a miss
		switch {
		case met:
			cum += WeeklyMomentum(habit.TargetCount, completions, prevMet, 0)
		case open && completions == 0:
			// no contribution yet
		default:
			cum += WeeklyMomentum(habit.TargetCount, completions, prevMet, missStreak)
		}

		for d := ws; !d.After(we); d = AddDays(d, 1) {
			if d.Before(start) || d.After(end) {
				continue
			}
			series[dayIndex(d)] += cum
		}

		if met {
			missStreak = 0
			prevMet = true
		} else {
			if !open {
				missStreak++
			}
			prevMet = false
		}
	}
	return nil
}
