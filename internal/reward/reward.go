// Package reward turns a pair of scan results and a gold-standard
// oracle into one bounded, deterministic scalar reward with a
// structured breakdown.
package reward

import (
	"github.com/dshills/confcritic/internal/violation"
)

// Weighting of the final reward: detection quality dominates, patch
// quality is a bounded top-up. These constants are part of the public
// contract; identical inputs must yield bit-identical breakdowns.
const (
	f1Weight = 0.7
	maxBonus = 0.3
)

// Breakdown is the scored outcome of one episode. Never mutated after
// creation.
type Breakdown struct {
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	F1              float64 `json:"f1"`
	PatchDeltaBonus float64 `json:"patch_delta_bonus"`
	FinalReward     float64 `json:"final_reward"`
	PatchFailed     bool    `json:"patch_failed"`
}

// Score compares the pre-patch scan against the oracle (severity-
// weighted precision/recall/F1) and the pre- vs post-patch scans
// (patch-delta bonus), and combines both into the final reward.
//
// Matching uses the same (resource, canonical category) key as
// deduplication. True positives and false negatives are weighted by the
// oracle's severity, false positives by the predicted severity.
func Score(pre violation.ScanResult, oracle []violation.Violation, post violation.ScanResult, patchFailed bool) Breakdown {
	oracleKeys := make(map[string]float64, len(oracle))
	for _, v := range oracle {
		oracleKeys[v.Key()] = v.Severity.Weight()
	}

	var tp, fp float64
	matched := make(map[string]bool)
	for _, v := range pre.Violations {
		if w, ok := oracleKeys[v.Key()]; ok {
			tp += w
			matched[v.Key()] = true
		} else {
			fp += v.Severity.Weight()
		}
	}
	var fn float64
	for _, v := range oracle {
		if !matched[v.Key()] {
			fn += v.Severity.Weight()
		}
	}

	precision := ratioOrPerfect(tp, tp+fp)
	recall := ratioOrPerfect(tp, tp+fn)

	// F1 convention: 0 when both precision and recall are 0; the
	// empty-oracle, empty-prediction case lands at P=R=1 and scores a
	// trivially perfect 1.0.
	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	bonus := patchDeltaBonus(pre, post, patchFailed)

	return Breakdown{
		Precision:       precision,
		Recall:          recall,
		F1:              f1,
		PatchDeltaBonus: bonus,
		FinalReward:     clamp01(f1Weight*f1 + bonus),
		PatchFailed:     patchFailed,
	}
}

// patchDeltaBonus rewards severity-weighted violations present before
// the patch and absent after it. No violations originally means there
// was nothing to fix and no bonus is available; a failed patch forces
// the bonus to zero regardless of the post-patch comparison.
func patchDeltaBonus(pre, post violation.ScanResult, patchFailed bool) float64 {
	if patchFailed {
		return 0
	}
	var original float64
	for _, v := range pre.Violations {
		original += v.Severity.Weight()
	}
	if original == 0 {
		return 0
	}

	postKeys := post.KeySet()
	var resolved float64
	for _, v := range pre.Violations {
		if _, still := postKeys[v.Key()]; !still {
			resolved += v.Severity.Weight()
		}
	}

	bonus := maxBonus * (resolved / original)
	if bonus > maxBonus {
		bonus = maxBonus
	}
	return bonus
}

func ratioOrPerfect(num, den float64) float64 {
	if den == 0 {
		return 1
	}
	return num / den
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
