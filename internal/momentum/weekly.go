package momentum

import (
	"github.com/lazypower/cadence/internal/store"
)

// Weekly scoring bounds.
const (
	weeklyTargetBonus = 10
	weeklyBonusCap    = 40
	weeklyMissStep    = 10
	weeklyMissCap     = 30
)

// WeeklyMomentum computes a full week's momentum for a weekly habit.
//
// completions is the sum of raw completed values inside the week, prevWeekMet
// reports whether the immediately preceding week reached its target, and
// missStreak is the number of consecutive target-missing weeks immediately
// before this one (0 when the previous week met its target).
//
// Base momentum is the completion count. Reaching the target adds +10; a
// second consecutive target week adds another +10 with the total clamped to
// 40. A missed week keeps its raw completions on the first miss, then the
// penalty ladder kicks in: -10, -20, -30, holding at -30 thereafter.
func WeeklyMomentum(target, completions int, prevWeekMet bool, missStreak int) int {
	if target <= 0 {
		target = store.DefaultWeeklyTarget
	}

	if completions >= target {
		m := completions + weeklyTargetBonus
		if prevWeekMet {
			m += weeklyTargetBonus
			if m > weeklyBonusCap {
				m = weeklyBonusCap
			}
		}
		return m
	}

	penalty := missStreak * weeklyMissStep
	if penalty > weeklyMissCap {
		penalty = weeklyMissCap
	}
	return completions - penalty
}
