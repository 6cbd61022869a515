package momentum

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/store"
)

// Store is the record store adapter consumed by the engine. *store.DB
// satisfies it; tests substitute failing implementations to exercise error
// isolation.
type Store interface {
	CreateHabit(h *store.Habit) error
	GetHabit(id string) (*store.Habit, error)
	ArchiveHabit(id string) error
	ListHabits(userID string) ([]store.Habit, error)
	ListHabitsByKind(userID, kind string, includeArchived bool) ([]store.Habit, error)
	SumAccumulatedMomentum(userID string) (int, error)
	CloseWeekMet(habitID, weekEnd string) error
	CloseWeekMissed(r *store.Record, delta, missWeeks int) error

	GetRecord(habitID, date string) (*store.Record, error)
	GetRecordsInRange(habitID, from, to string) ([]store.Record, error)
	ListRecordsThrough(habitID, through string) ([]store.Record, error)
	GetMostRecentRecordBefore(habitID, date string) (*store.Record, error)
	SumCompletedInRange(habitID, from, to string) (int, error)
	ApplyRecord(r *store.Record, delta int) error
}

// Service orchestrates momentum scoring: it verifies ownership, runs the
// calculators, persists records, and keeps each habit's cached running total
// in step with every write.
type Service struct {
	store  Store
	log    *zap.Logger
	now    func() time.Time
	stopCh chan struct{}
}

// NewService creates a Service backed by the given store.
func NewService(st Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  st,
		log:    log,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// today returns the current UTC calendar date.
func (s *Service) today() time.Time {
	return DateOf(s.now())
}

// authorizeHabit loads a habit and verifies the acting user owns it and it
// is still active.
func (s *Service) authorizeHabit(userID, habitID string) (*store.Habit, error) {
	habit, err := s.store.GetHabit(habitID)
	if err != nil {
		return nil, err
	}
	if habit == nil {
		return nil, ErrNotFound
	}
	if habit.UserID != userID {
		return nil, ErrAccessDenied
	}
	return habit, nil
}

// CreateHabit validates and creates a habit for a user.
func (s *Service) CreateHabit(userID, name, kind string, targetCount int) (*store.Habit, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if kind != store.KindDaily && kind != store.KindWeekly {
		return nil, &ValidationError{Field: "kind", Reason: "must be daily or weekly"}
	}
	if kind == store.KindWeekly {
		if targetCount == 0 {
			targetCount = store.DefaultWeeklyTarget
		}
		if targetCount < store.DefaultWeeklyTarget {
			return nil, &ValidationError{Field: "target_count", Reason: "weekly target must be at least 2"}
		}
	} else {
		targetCount = 0
	}

	habit := &store.Habit{
		UserID:      userID,
		Name:        name,
		Kind:        kind,
		TargetCount: targetCount,
	}
	if err := s.store.CreateHabit(habit); err != nil {
		return nil, err
	}
	return habit, nil
}

// GetHabit returns a habit after verifying the acting user owns it.
func (s *Service) GetHabit(userID, habitID string) (*store.Habit, error) {
	return s.authorizeHabit(userID, habitID)
}

// ListHabits returns a user's active habits.
func (s *Service) ListHabits(userID string) ([]store.Habit, error) {
	return s.store.ListHabits(userID)
}

// ArchiveHabit archives a habit after verifying ownership. Archived habits
// stop accruing momentum and drop out of listings and sweeps.
func (s *Service) ArchiveHabit(userID, habitID string) error {
	if _, err := s.authorizeHabit(userID, habitID); err != nil {
		return err
	}
	return s.store.ArchiveHabit(habitID)
}

// RecordsInRange returns a habit's records between two dates after verifying
// ownership.
func (s *Service) RecordsInRange(userID, habitID, from, to string) ([]store.Record, error) {
	if _, err := ParseDate(from); err != nil {
		return nil, err
	}
	if _, err := ParseDate(to); err != nil {
		return nil, err
	}
	if _, err := s.authorizeHabit(userID, habitID); err != nil {
		return nil, err
	}
	return s.store.GetRecordsInRange(habitID, from, to)
}

// RecordCompletion records a completion (or explicit miss) for a habit on a
// calendar date, computes the resulting momentum, and upserts the record.
// The write is idempotent on (habit, date); the habit's accumulated momentum
// is adjusted by the delta against any previous value for the same key.
func (s *Service) RecordCompletion(userID, habitID, date string, completed int) (*store.Record, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if completed < 0 {
		return nil, &ValidationError{Field: "completed", Reason: "must be non-negative"}
	}

	habit, err := s.authorizeHabit(userID, habitID)
	if err != nil {
		return nil, err
	}
	if habit.Archived() {
		return nil, ErrArchived
	}

	switch habit.Kind {
	case store.KindDaily:
		if completed > 1 {
			return nil, &ValidationError{Field: "completed", Reason: "daily habits record at most one completion per day"}
		}
		return s.recordDaily(habit, day, completed)
	case store.KindWeekly:
		return s.recordWeekly(habit, day, completed)
	}
	return nil, &ValidationError{Field: "kind", Reason: "must be daily or weekly"}
}

func (s *Service) recordDaily(habit *store.Habit, day time.Time, completed int) (*store.Record, error) {
	date := FormatDate(day)

	existing, err := s.store.GetRecord(habit.ID, date)
	if err != nil {
		return nil, err
	}
	prevDay, err := s.store.GetRecord(habit.ID, FormatDate(AddDays(day, -1)))
	if err != nil {
		return nil, err
	}
	lastBefore, err := s.store.GetMostRecentRecordBefore(habit.ID, date)
	if err != nil {
		return nil, err
	}

	m := DailyMomentum(prevDay, lastBefore, completed > 0)
	oldM := 0
	if existing != nil {
		oldM = existing.Momentum
	}

	rec := &store.Record{
		HabitID:   habit.ID,
		UserID:    habit.UserID,
		Date:      date,
		Completed: completed,
		Momentum:  m,
	}
	if err := s.store.ApplyRecord(rec, m-oldM); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) recordWeekly(habit *store.Habit, day time.Time, completed int) (*store.Record, error) {
	date := FormatDate(day)
	ws, we := WeekStart(day), WeekEnd(day)

	recs, err := s.store.GetRecordsInRange(habit.ID, FormatDate(ws), FormatDate(we))
	if err != nil {
		return nil, err
	}
	oldCompletions := 0
	existingForDate := 0
	for i := range recs {
		oldCompletions += recs[i].Completed
		if recs[i].Date == date {
			existingForDate = recs[i].Completed
		}
	}
	newCompletions := oldCompletions - existingForDate + completed

	prevMet, missStreak, err := s.weekContext(habit, ws)
	if err != nil {
		return nil, err
	}

	// The week's previous contribution to the running total; zero if the
	// week had no records yet.
	oldM := 0
	if len(recs) > 0 {
		oldM = WeeklyMomentum(habit.TargetCount, oldCompletions, prevMet, missStreak)
	}
	newM := WeeklyMomentum(habit.TargetCount, newCompletions, prevMet, missStreak)

	rec := &store.Record{
		HabitID:   habit.ID,
		UserID:    habit.UserID,
		Date:      date,
		Completed: completed,
		Momentum:  newM,
	}
	if err := s.store.ApplyRecord(rec, newM-oldM); err != nil {
		return nil, err
	}
	return rec, nil
}

// weekContext resolves the streak inputs for the week starting at ws: did
// the preceding week meet its target, and how many consecutive missed weeks
// precede this one.
func (s *Service) weekContext(habit *store.Habit, ws time.Time) (prevMet bool, missStreak int, err error) {
	prevCompletions, err := s.store.SumCompletedInRange(habit.ID,
		FormatDate(AddDays(ws, -7)), FormatDate(AddDays(ws, -1)))
	if err != nil {
		return false, 0, err
	}
	prevMet = prevCompletions >= habit.TargetCount
	if !prevMet {
		missStreak = habit.ConsecutiveMissWeeks
	}
	return prevMet, missStreak, nil
}

// CurrentMomentum returns a habit's momentum as of now: the latest daily
// value, or the in-progress week's value for weekly habits.
func (s *Service) CurrentMomentum(habit *store.Habit) (int, error) {
	today := s.today()

	switch habit.Kind {
	case store.KindWeekly:
		ws, we := WeekStart(today), WeekEnd(today)
		recs, err := s.store.GetRecordsInRange(habit.ID, FormatDate(ws), FormatDate(we))
		if err != nil {
			return 0, err
		}
		if len(recs) == 0 {
			return 0, nil
		}
		completions := 0
		for i := range recs {
			completions += recs[i].Completed
		}
		prevMet, missStreak, err := s.weekContext(habit, ws)
		if err != nil {
			return 0, err
		}
		return WeeklyMomentum(habit.TargetCount, completions, prevMet, missStreak), nil
	default:
		last, err := s.store.GetMostRecentRecordBefore(habit.ID, FormatDate(AddDays(today, 1)))
		if err != nil {
			return 0, err
		}
		if last == nil {
			return 0, nil
		}
		return last.Momentum, nil
	}
}

// TotalMomentum returns the sum of accumulated momentum across a user's
// active habits.
func (s *Service) TotalMomentum(userID string) (int, error) {
	total, err := s.store.SumAccumulatedMomentum(userID)
	if err != nil {
		return 0, fmt.Errorf("total momentum: %w", err)
	}
	return total, nil
}
