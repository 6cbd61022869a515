package momentum

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/store"
)

// SweepResult reports how a sweep pass went. Errors are per-habit failures
// that were isolated and logged; they never abort the pass.
type SweepResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// SweepDaily finds daily habits with no record for yesterday and writes a
// miss record with the computed penalty. Habits are independent units of
// work: a failure on one is counted and logged, and the sweep moves on.
// Failing to enumerate the habit list at all is fatal.
func (s *Service) SweepDaily() (SweepResult, error) {
	var res SweepResult
	yesterday := FormatDate(AddDays(s.today(), -1))

	habits, err := s.store.ListHabitsByKind("", store.KindDaily, false)
	if err != nil {
		return res, fmt.Errorf("list daily habits: %w", err)
	}

	for i := range habits {
		if err := s.sweepDailyHabit(&habits[i], yesterday); err != nil {
			res.Errors++
			sweepErrorsTotal.WithLabelValues("daily").Inc()
			s.log.Warn("daily sweep: habit failed",
				zap.String("habit_id", habits[i].ID), zap.Error(err))
			continue
		}
		res.Processed++
		sweepProcessedTotal.WithLabelValues("daily").Inc()
	}
	return res, nil
}

func (s *Service) sweepDailyHabit(habit *store.Habit, date string) error {
	existing, err := s.store.GetRecord(habit.ID, date)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	lastBefore, err := s.store.GetMostRecentRecordBefore(habit.ID, date)
	if err != nil {
		return err
	}

	m := DailyMomentum(nil, lastBefore, false)
	rec := &store.Record{
		HabitID:   habit.ID,
		UserID:    habit.UserID,
		Date:      date,
		Completed: 0,
		Momentum:  m,
	}
	return s.store.ApplyRecord(rec, m)
}

// SweepWeekly closes out the week that just ended for every weekly habit:
// habits that met their target get their miss counter reset, habits that
// missed get a penalty record dated at the week's last day and their counter
// bumped. Same isolation rules as the daily pass.
func (s *Service) SweepWeekly() (SweepResult, error) {
	var res SweepResult
	we := AddDays(WeekStart(s.today()), -1) // Sunday of the week just ended
	ws := AddDays(we, -6)

	habits, err := s.store.ListHabitsByKind("", store.KindWeekly, false)
	if err != nil {
		return res, fmt.Errorf("list weekly habits: %w", err)
	}

	for i := range habits {
		if err := s.sweepWeeklyHabit(&habits[i], ws, we); err != nil {
			res.Errors++
			sweepErrorsTotal.WithLabelValues("weekly").Inc()
			s.log.Warn("weekly sweep: habit failed",
				zap.String("habit_id", habits[i].ID), zap.Error(err))
			continue
		}
		res.Processed++
		sweepProcessedTotal.WithLabelValues("weekly").Inc()
	}
	return res, nil
}

func (s *Service) sweepWeeklyHabit(habit *store.Habit, ws, we time.Time) error {
	endDate := FormatDate(we)
	// A re-run on the same day (timer plus cron, or a retry) must not deepen
	// the penalty or double-bump the counter.
	if habit.LastClosedWeek >= endDate {
		return nil
	}

	completions, err := s.store.SumCompletedInRange(habit.ID, FormatDate(ws), endDate)
	if err != nil {
		return err
	}
	if completions >= habit.TargetCount {
		return s.store.CloseWeekMet(habit.ID, endDate)
	}

	prevMet, missStreak, err := s.weekContext(habit, ws)
	if err != nil {
		return err
	}
	m := WeeklyMomentum(habit.TargetCount, completions, prevMet, missStreak)

	recs, err := s.store.GetRecordsInRange(habit.ID, FormatDate(ws), endDate)
	if err != nil {
		return err
	}

	// Any in-week write already applied this week's momentum to the running
	// total with the same inputs, so only an empty week shifts the total.
	delta := 0
	if len(recs) == 0 {
		delta = m
	}
	endCompleted := 0
	for i := range recs {
		if recs[i].Date == endDate {
			endCompleted = recs[i].Completed
		}
	}
	rec := &store.Record{
		HabitID:   habit.ID,
		UserID:    habit.UserID,
		Date:      endDate,
		Completed: endCompleted,
		Momentum:  m,
	}
	return s.store.CloseWeekMissed(rec, delta, missStreak+1)
}

// StartSweepTimer schedules the sweep to run daily at the given UTC hour,
// with the weekly pass added on Mondays (the day after week close). Stop
// shuts the timer down.
func (s *Service) StartSweepTimer(hour int) {
	go func() {
		for {
			now := s.now().UTC()
			next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
			if !next.After(now) {
				next = next.Add(24 * time.Hour)
			}
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-timer.C:
				s.runScheduledSweep()
			case <-s.stopCh:
				timer.Stop()
				return
			}
		}
	}()
}

func (s *Service) runScheduledSweep() {
	if res, err := s.SweepDaily(); err != nil {
		s.log.Error("daily sweep failed", zap.Error(err))
	} else {
		s.log.Info("daily sweep complete",
			zap.Int("processed", res.Processed), zap.Int("errors", res.Errors))
	}

	if s.today().Weekday() == time.Monday {
		if res, err := s.SweepWeekly(); err != nil {
			s.log.Error("weekly sweep failed", zap.Error(err))
		} else {
			s.log.Info("weekly sweep complete",
				zap.Int("processed", res.Processed), zap.Int("errors", res.Errors))
		}
	}
}

// Stop shuts down the service's background goroutines.
func (s *Service) Stop() {
	close(s.stopCh)
}
