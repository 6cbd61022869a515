package momentum

import (
	"github.com/lazypower/cadence/internal/store"
)

// Daily scoring bounds.
const (
	dailyStreakCap    = 7
	dailyPenaltyFloor = -3
)

// DailyMomentum computes a single day's momentum for a daily habit.
//
// prevDay is the record for the immediately preceding calendar day (nil if
// none) and lastBefore is the most recent record strictly before the day
// (nil if the habit has no earlier history). Only prevDay matters for a
// completed day; only lastBefore matters for a miss.
//
// Rules, in priority order:
//   - completed with a completed prev-day record: streak continues,
//     prev momentum + 1, capped at +7
//   - completed otherwise: fresh start, momentum 1
//   - missed with no history: 0
//   - missed after a missed record: escalate, last momentum - 1, floored
//     at -3
//   - missed after a completed record: reset to 0, never straight to
//     negative
//
// A multi-day gap counts as a single evaluation step against the last known
// record, not one decrement per elapsed day; the sweep fills one day per run
// so each missed day still ends up with its own record.
func DailyMomentum(prevDay, lastBefore *store.Record, completed bool) int {
	if completed {
		if prevDay != nil && prevDay.Completed > 0 {
			return minInt(prevDay.Momentum+1, dailyStreakCap)
		}
		return 1
	}

	if lastBefore == nil {
		return 0
	}
	if lastBefore.Completed == 0 {
		return maxInt(lastBefore.Momentum-1, dailyPenaltyFloor)
	}
	return 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
