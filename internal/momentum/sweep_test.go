package momentum

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/store"
)

// flakyStore fails every record read for one habit, leaving the rest of the
// store intact.
type flakyStore struct {
	Store
	failHabitID string
}

func (f *flakyStore) GetRecord(habitID, date string) (*store.Record, error) {
	if habitID == f.failHabitID {
		return nil, errors.New("store unavailable")
	}
	return f.Store.GetRecord(habitID, date)
}

func TestSweepDailyFillsMissedDay(t *testing.T) {
	svc, db := newTestService(t)
	h := createHabit(t, db, "maya", store.KindDaily, 0)

	// Completed through Sunday, then nothing; sweep runs Tuesday
	svc.RecordCompletion(h.UserID, h.ID, "2025-06-08", 1)
	setNow(t, svc, "2025-06-10")

	res, err := svc.SweepDaily()
	if err != nil {
		t.Fatalf("SweepDaily: %v", err)
	}
	if res.Processed != 1 || res.Errors != 0 {
		t.Errorf("result = %+v, want processed=1 errors=0", res)
	}

	rec, _ := db.GetRecord(h.ID, "2025-06-09")
	if rec == nil {
		t.Fatal("expected synthesized miss record for 2025-06-09")
	}
	if rec.Completed != 0 || rec.Momentum != 0 {
		t.Errorf("record = completed %d momentum %d, want 0/0 (first miss after completion)", rec.Completed, rec.Momentum)
	}
}

func TestSweepDailySkipsRecordedAndArchived(t *testing.T) {
	svc, db := newTestService(t)
	recorded := createHabit(t, db, "maya", store.KindDaily, 0)
	archived := createHabit(t, db, "theo", store.KindDaily, 0)

	svc.RecordCompletion(recorded.UserID, recorded.ID, "2025-06-09", 1)
	db.ArchiveHabit(archived.ID)
	setNow(t, svc, "2025-06-10")

	res, err := svc.SweepDaily()
	if err != nil {
		t.Fatalf("SweepDaily: %v", err)
	}
	if res.Processed != 1 || res.Errors != 0 {
		t.Errorf("result = %+v, want processed=1 errors=0", res)
	}

	// The recorded completion stays untouched
	rec, _ := db.GetRecord(recorded.ID, "2025-06-09")
	if rec.Completed != 1 || rec.Momentum != 1 {
		t.Errorf("record = completed %d momentum %d, want 1/1", rec.Completed, rec.Momentum)
	}
	// The archived habit got nothing
	if rec, _ := db.GetRecord(archived.ID, "2025-06-09"); rec != nil {
		t.Error("archived habit should not receive sweep records")
	}
}

func TestSweepDailyPenaltyEscalation(t *testing.T) {
	svc, db := newTestService(t)
	h := createHabit(t, db, "maya", store.KindDaily, 0)
	svc.RecordCompletion(h.UserID, h.ID, "2025-06-08", 1)

	// Five consecutive nightly sweeps with no activity
	days := []struct {
		now, filled string
		want        int
	}{
		{"2025-06-10", "2025-06-09", 0},
		{"2025-06-11", "2025-06-10", -1},
		{"2025-06-12", "2025-06-11", -2},
		{"2025-06-13", "2025-06-12", -3},
		{"2025-06-14", "2025-06-13", -3},
	}
	for _, d := range days {
		setNow(t, svc, d.now)
		if _, err := svc.SweepDaily(); err != nil {
			t.Fatalf("SweepDaily(%s): %v", d.now, err)
		}
		rec, _ := db.GetRecord(h.ID, d.filled)
		if rec == nil || rec.Momentum != d.want {
			t.Fatalf("record for %s = %+v, want momentum %d", d.filled, rec, d.want)
		}
	}

	found, _ := db.GetHabit(h.ID)
	if found.AccumulatedMomentum != 1+0-1-2-3-3 {
		t.Errorf("accumulated = %d, want %d", found.AccumulatedMomentum, 1+0-1-2-3-3)
	}
}

func TestSweepIsolation(t *testing.T) {
	_, db := newTestService(t)
	h1 := createHabit(t, db, "maya", store.KindDaily, 0)
	h2 := createHabit(t, db, "theo", store.KindDaily, 0)
	h3 := createHabit(t, db, "ines", store.KindDaily, 0)

	broken := NewService(&flakyStore{Store: db, failHabitID: h2.ID}, zap.NewNop())
	setNow(t, broken, "2025-06-10")

	res, err := broken.SweepDaily()
	if err != nil {
		t.Fatalf("SweepDaily: %v", err)
	}
	if res.Processed != 2 || res.Errors != 1 {
		t.Errorf("result = %+v, want processed=2 errors=1", res)
	}

	// Both healthy habits have persisted records
	for _, h := range []*store.Habit{h1, h3} {
		if rec, _ := db.GetRecord(h.ID, "2025-06-09"); rec == nil {
			t.Errorf("habit %s: expected sweep record", h.Name)
		}
	}
	if rec, _ := db.GetRecord(h2.ID, "2025-06-09"); rec != nil {
		t.Error("failing habit should not have a record")
	}
}

func TestSweepWeeklyMissLadder(t *testing.T) {
	svc, db := newTestService(t)
	h := createHabit(t, db, "maya", store.KindWeekly, 2)

	// Meet the target once, then go silent for five weeks. Each Monday close
	// writes the week-end penalty record and advances the ladder.
	svc.RecordCompletion(h.UserID, h.ID, "2025-06-02", 2) // accumulated: 12

	closes := []struct {
		now, weekEnd string
		want         int
	}{
		{"2025-06-16", "2025-06-15", 0},
		{"2025-06-23", "2025-06-22", -10},
		{"2025-06-30", "2025-06-29", -20},
		{"2025-07-07", "2025-07-06", -30},
		{"2025-07-14", "2025-07-13", -30},
	}
	for _, c := range closes {
		setNow(t, svc, c.now)
		res, err := svc.SweepWeekly()
		if err != nil {
			t.Fatalf("SweepWeekly(%s): %v", c.now, err)
		}
		if res.Processed != 1 || res.Errors != 0 {
			t.Fatalf("result = %+v, want processed=1 errors=0", res)
		}
		rec, _ := db.GetRecord(h.ID, c.weekEnd)
		if rec == nil || rec.Momentum != c.want {
			t.Fatalf("close %s = %+v, want momentum %d", c.weekEnd, rec, c.want)
		}
		if rec.Completed != 0 {
			t.Fatalf("close %s completed = %d, want 0", c.weekEnd, rec.Completed)
		}
	}

	found, _ := db.GetHabit(h.ID)
	if found.ConsecutiveMissWeeks != 5 {
		t.Errorf("miss weeks = %d, want 5", found.ConsecutiveMissWeeks)
	}
	if found.AccumulatedMomentum != 12+0-10-20-30-30 {
		t.Errorf("accumulated = %d, want %d", found.AccumulatedMomentum, 12+0-10-20-30-30)
	}
}

func TestSweepWeeklyRepeatRunsConverge(t *testing.T) {
	svc, db := newTestService(t)
	h := createHabit(t, db, "maya", store.KindWeekly, 2)
	setNow(t, svc, "2025-06-16")

	// The in-process timer and an external cron can both fire on the same
	// Monday; the second close of the same week must change nothing.
	for run := 1; run <= 2; run++ {
		res, err := svc.SweepWeekly()
		if err != nil {
			t.Fatalf("SweepWeekly run %d: %v", run, err)
		}
		if res.Processed != 1 || res.Errors != 0 {
			t.Fatalf("run %d result = %+v, want processed=1 errors=0", run, res)
		}
	}

	rec, _ := db.GetRecord(h.ID, "2025-06-15")
	if rec == nil || rec.Momentum != 0 {
		t.Fatalf("week-end record = %+v, want momentum 0 (first miss)", rec)
	}
	found, _ := db.GetHabit(h.ID)
	if found.ConsecutiveMissWeeks != 1 {
		t.Errorf("miss weeks = %d, want 1 after repeated close", found.ConsecutiveMissWeeks)
	}
	if found.AccumulatedMomentum != 0 {
		t.Errorf("accumulated = %d, want 0 after repeated close", found.AccumulatedMomentum)
	}
}

func TestSweepWeeklyResetsCounterOnMetWeek(t *testing.T) {
	svc, db := newTestService(t)
	h := createHabit(t, db, "maya", store.KindWeekly, 2)

	// Two missed weeks, then a target-meeting week
	setNow(t, svc, "2025-06-09")
	svc.SweepWeekly() // closes 2025-06-02..08, counter 1
	setNow(t, svc, "2025-06-16")
	svc.SweepWeekly() // closes 2025-06-09..15, counter 2

	found, _ := db.GetHabit(h.ID)
	if found.ConsecutiveMissWeeks != 2 {
		t.Fatalf("miss weeks = %d, want 2", found.ConsecutiveMissWeeks)
	}

	svc.RecordCompletion(h.UserID, h.ID, "2025-06-17", 2)
	setNow(t, svc, "2025-06-23")
	if _, err := svc.SweepWeekly(); err != nil {
		t.Fatalf("SweepWeekly: %v", err)
	}

	found, _ = db.GetHabit(h.ID)
	if found.ConsecutiveMissWeeks != 0 {
		t.Errorf("miss weeks = %d, want 0 after met week", found.ConsecutiveMissWeeks)
	}
}

func TestSweepWeeklyDoesNotDoubleCount(t *testing.T) {
	svc, db := newTestService(t)
	h := createHabit(t, db, "maya", store.KindWeekly, 3)

	// A partial week already contributed its face value when logged
	svc.RecordCompletion(h.UserID, h.ID, "2025-06-03", 2) // accumulated: 2
	setNow(t, svc, "2025-06-09")

	if _, err := svc.SweepWeekly(); err != nil {
		t.Fatalf("SweepWeekly: %v", err)
	}

	found, _ := db.GetHabit(h.ID)
	if found.AccumulatedMomentum != 2 {
		t.Errorf("accumulated = %d, want 2 (no double count at close)", found.AccumulatedMomentum)
	}
	if found.ConsecutiveMissWeeks != 1 {
		t.Errorf("miss weeks = %d, want 1", found.ConsecutiveMissWeeks)
	}

	// The close stamps the week-end record with the final week momentum
	rec, _ := db.GetRecord(h.ID, "2025-06-08")
	if rec == nil || rec.Momentum != 2 {
		t.Fatalf("week-end record = %+v, want momentum 2", rec)
	}
}

func TestSweepFatalOnEnumerationFailure(t *testing.T) {
	svc, db := newTestService(t)
	db.Close()

	if _, err := svc.SweepDaily(); err == nil {
		t.Error("expected error when habit enumeration fails")
	}
}
