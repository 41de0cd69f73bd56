package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/violation"
)

func v(resource, category string, sev finding.Severity) violation.Violation {
	return violation.Violation{
		ID:       violation.MakeID(resource, category),
		Severity: sev,
		Resource: resource,
		Category: category,
	}
}

func scan(violations ...violation.Violation) violation.ScanResult {
	return violation.ScanResult{Violations: violations}
}

func TestScoreDetectionOnly(t *testing.T) {
	oracle := []violation.Violation{
		v("Deployment/web", "privileged-container", finding.SeverityCritical), // found
		v("Deployment/web", "run-as-root", finding.SeverityHigh),              // missed
	}
	pre := scan(
		v("Deployment/web", "privileged-container", finding.SeverityCritical), // TP, weight 8
		v("Deployment/api", "unpinned-image", finding.SeverityMedium),         // FP, weight 2
	)

	b := Score(pre, oracle, pre, false)

	assert.InDelta(t, 0.8, b.Precision, 1e-9)      // 8 / (8+2)
	assert.InDelta(t, 2.0/3.0, b.Recall, 1e-9)     // 8 / (8+4)
	assert.InDelta(t, 0.727272, b.F1, 1e-6)
	assert.Zero(t, b.PatchDeltaBonus, "unchanged post-scan earns no bonus")
	assert.InDelta(t, 0.7*b.F1, b.FinalReward, 1e-9)
	assert.False(t, b.PatchFailed)
}

func TestScoreWithPatchBonus(t *testing.T) {
	oracle := []violation.Violation{
		v("Deployment/web", "privileged-container", finding.SeverityCritical),
		v("Deployment/web", "run-as-root", finding.SeverityHigh),
	}
	pre := scan(
		v("Deployment/web", "privileged-container", finding.SeverityCritical),
		v("Deployment/api", "unpinned-image", finding.SeverityMedium),
	)
	// patch fixed the critical violation, the medium one remains
	post := scan(
		v("Deployment/api", "unpinned-image", finding.SeverityMedium),
	)

	b := Score(pre, oracle, post, false)

	assert.InDelta(t, 0.24, b.PatchDeltaBonus, 1e-9) // 0.3 * 8/10
	assert.InDelta(t, 0.749091, b.FinalReward, 1e-6)
}

func TestScoreFullResolutionHitsCap(t *testing.T) {
	oracle := []violation.Violation{v("Pod/p", "privileged-container", finding.SeverityHigh)}
	pre := scan(v("Pod/p", "privileged-container", finding.SeverityHigh))
	post := scan()

	b := Score(pre, oracle, post, false)

	assert.InDelta(t, 0.3, b.PatchDeltaBonus, 1e-9)
	assert.InDelta(t, 1.0, b.FinalReward, 1e-9) // perfect detection + full fix
}

func TestScoreBoundaryConventions(t *testing.T) {
	empty := scan()

	t.Run("empty oracle, empty predictions", func(t *testing.T) {
		b := Score(empty, nil, empty, false)
		assert.Equal(t, 1.0, b.Precision)
		assert.Equal(t, 1.0, b.Recall)
		assert.Equal(t, 1.0, b.F1)
		assert.Zero(t, b.PatchDeltaBonus, "nothing to fix, no bonus available")
		assert.InDelta(t, 0.7, b.FinalReward, 1e-9)
	})

	t.Run("empty oracle, spurious predictions", func(t *testing.T) {
		pre := scan(v("Pod/p", "privileged-container", finding.SeverityHigh))
		b := Score(pre, nil, pre, false)
		assert.Zero(t, b.Precision)
		assert.Equal(t, 1.0, b.Recall)
		assert.Zero(t, b.F1)
	})

	t.Run("non-empty oracle, no predictions", func(t *testing.T) {
		oracle := []violation.Violation{v("Pod/p", "privileged-container", finding.SeverityHigh)}
		b := Score(empty, oracle, empty, false)
		assert.Equal(t, 1.0, b.Precision)
		assert.Zero(t, b.Recall)
		assert.Zero(t, b.F1)
		assert.Zero(t, b.FinalReward)
	})
}

func TestScorePatchFailed(t *testing.T) {
	oracle := []violation.Violation{v("Pod/p", "privileged-container", finding.SeverityHigh)}
	pre := scan(v("Pod/p", "privileged-container", finding.SeverityHigh))

	// post equals pre by contract when the patch is rejected, but even a
	// fabricated clean post-scan must not earn a bonus
	b := Score(pre, oracle, scan(), true)

	assert.True(t, b.PatchFailed)
	assert.Zero(t, b.PatchDeltaBonus)
	assert.InDelta(t, 0.7*b.F1, b.FinalReward, 1e-9)
}

func TestScoreBonusMonotonic(t *testing.T) {
	oracle := []violation.Violation{
		v("Pod/a", "privileged-container", finding.SeverityHigh),
		v("Pod/b", "run-as-root", finding.SeverityHigh),
	}
	pre := scan(
		v("Pod/a", "privileged-container", finding.SeverityHigh),
		v("Pod/b", "run-as-root", finding.SeverityHigh),
	)
	oneFixed := scan(v("Pod/b", "run-as-root", finding.SeverityHigh))
	bothFixed := scan()

	none := Score(pre, oracle, pre, false)
	one := Score(pre, oracle, oneFixed, false)
	both := Score(pre, oracle, bothFixed, false)

	assert.Less(t, none.PatchDeltaBonus, one.PatchDeltaBonus)
	assert.Less(t, one.PatchDeltaBonus, both.PatchDeltaBonus)
}

func TestScoreDeterministic(t *testing.T) {
	oracle := []violation.Violation{
		v("Deployment/web", "privileged-container", finding.SeverityCritical),
		v("Deployment/web", "host-namespace", finding.SeverityMedium),
	}
	pre := scan(
		v("Deployment/web", "privileged-container", finding.SeverityCritical),
		v("Deployment/web", "unpinned-image", finding.SeverityLow),
	)
	post := scan(v("Deployment/web", "unpinned-image", finding.SeverityLow))

	first := Score(pre, oracle, post, false)
	second := Score(pre, oracle, post, false)
	assert.Equal(t, first, second)
}

func TestScoreBounded(t *testing.T) {
	cases := []struct {
		name   string
		oracle []violation.Violation
		pre    violation.ScanResult
		post   violation.ScanResult
	}{
		{"perfect", []violation.Violation{v("Pod/p", "run-as-root", finding.SeverityHigh)},
			scan(v("Pod/p", "run-as-root", finding.SeverityHigh)), scan()},
		{"all wrong", []violation.Violation{v("Pod/p", "run-as-root", finding.SeverityHigh)},
			scan(v("Pod/q", "unpinned-image", finding.SeverityLow)), scan()},
		{"empty everything", nil, scan(), scan()},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			b := Score(tt.pre, tt.oracle, tt.post, false)
			assert.GreaterOrEqual(t, b.FinalReward, 0.0)
			assert.LessOrEqual(t, b.FinalReward, 1.0)
		})
	}
}
