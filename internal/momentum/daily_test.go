package momentum

import (
	"testing"

	"github.com/lazypower/cadence/internal/store"
)

func rec(completed, momentum int) *store.Record {
	return &store.Record{Completed: completed, Momentum: momentum}
}

func TestDailyMomentumRules(t *testing.T) {
	tests := []struct {
		name       string
		prevDay    *store.Record
		lastBefore *store.Record
		completed  bool
		want       int
	}{
		{"first ever completion", nil, nil, true, 1},
		{"streak continues", rec(1, 3), rec(1, 3), true, 4},
		{"streak capped at 7", rec(1, 7), rec(1, 7), true, 7},
		{"recovery after miss resets to 1", rec(0, -2), rec(0, -2), true, 1},
		{"gap breaks streak", nil, rec(1, 5), true, 1},
		{"miss with no history", nil, nil, false, 0},
		{"first miss resets to neutral", rec(1, 5), rec(1, 5), false, 0},
		{"second miss goes negative", rec(0, 0), rec(0, 0), false, -1},
		{"penalty escalates", nil, rec(0, -2), false, -3},
		{"penalty floored at -3", nil, rec(0, -3), false, -3},
		{"miss after gap uses last known record", nil, rec(1, 4), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyMomentum(tt.prevDay, tt.lastBefore, tt.completed)
			if got != tt.want {
				t.Errorf("DailyMomentum = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDailyStreakCap(t *testing.T) {
	// N consecutive completed days: momentum on day N is min(N, 7)
	var prev *store.Record
	for day := 1; day <= 10; day++ {
		m := DailyMomentum(prev, prev, true)
		want := day
		if want > 7 {
			want = 7
		}
		if m != want {
			t.Fatalf("day %d momentum = %d, want %d", day, m, want)
		}
		prev = rec(1, m)
	}
}

func TestDailyPenaltyFloor(t *testing.T) {
	// After a reset, N consecutive misses floor at -3
	last := rec(1, 5)
	want := []int{0, -1, -2, -3, -3, -3}
	for i, w := range want {
		m := DailyMomentum(nil, last, false)
		if m != w {
			t.Fatalf("miss %d momentum = %d, want %d", i+1, m, w)
		}
		last = rec(0, m)
	}
}

func TestDailyRecovery(t *testing.T) {
	// Completing after any number of misses yields exactly 1
	last := rec(1, 6)
	for i := 0; i < 5; i++ {
		last = rec(0, DailyMomentum(nil, last, false))
	}
	if m := DailyMomentum(last, last, true); m != 1 {
		t.Errorf("recovery momentum = %d, want 1", m)
	}
}
