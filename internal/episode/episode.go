// Package episode runs one complete evaluation episode: scan the
// artifact, attempt the proposed patch, rescan, and score. Episodes are
// stateless with respect to each other and safe to run concurrently.
package episode

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/confcritic/internal/artifact"
	"github.com/dshills/confcritic/internal/patch"
	"github.com/dshills/confcritic/internal/rescan"
	"github.com/dshills/confcritic/internal/reward"
	"github.com/dshills/confcritic/internal/violation"
)

// State is one step of the episode lifecycle. Every episode terminates
// in StateScored; a rejected patch takes the PatchRejected branch and
// still produces a complete (lower) reward.
type State string

const (
	StateUnscanned      State = "unscanned"
	StateScanned        State = "scanned"
	StatePatchAttempted State = "patch-attempted"
	StatePatchApplied   State = "patch-applied"
	StatePatchRejected  State = "patch-rejected"
	StateRescanned      State = "rescanned"
	StateScored         State = "scored"
)

// Outcome is the full result of one episode.
type Outcome struct {
	Pre          violation.ScanResult
	Post         violation.ScanResult
	PatchResult  patch.Result
	PatchFailed  bool
	Breakdown    reward.Breakdown
	ArtifactType artifact.Type
	// Trace records the states visited, ending in StateScored.
	Trace []State
}

// Runner executes episodes against one fixed coordinator configuration.
type Runner struct {
	coord *rescan.Coordinator
	log   *zap.SugaredLogger
}

// NewRunner builds a runner. A nil logger disables logging.
func NewRunner(coord *rescan.Coordinator, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{coord: coord, log: log}
}

// Run executes one episode. spec may be nil when no patch was proposed;
// the post-patch result then equals the pre-patch result and no bonus is
// available. oracle may be empty but not malformed; oracle schema
// defects must be caught by the caller before Run.
func (r *Runner) Run(ctx context.Context, art *artifact.Artifact, spec *patch.Spec, oracle []violation.Violation) (*Outcome, error) {
	out := &Outcome{ArtifactType: art.Type, Trace: []State{StateUnscanned}}

	pre, err := r.coord.Scan(ctx, art.Path)
	if err != nil {
		return nil, fmt.Errorf("episode.Run: pre-patch scan: %w", err)
	}
	out.Pre = pre
	out.enter(StateScanned)
	r.log.Infow("pre-patch scan complete",
		"violations", len(pre.Violations), "tool_errors", len(pre.ToolErrors))

	switch {
	case spec == nil:
		out.Post = pre
	default:
		out.enter(StatePatchAttempted)
		res := patch.Apply(art.Raw, *spec)
		out.PatchResult = res
		if !res.Applied {
			// rejected patch is a no-op: post equals pre exactly
			out.enter(StatePatchRejected)
			out.PatchFailed = true
			out.Post = pre
			r.log.Infow("patch rejected", "reason", res.Reason, "err", res.Err)
			break
		}
		out.enter(StatePatchApplied)
		post, err := r.coord.Rescan(ctx, res.Content)
		if err != nil {
			return nil, fmt.Errorf("episode.Run: post-patch rescan: %w", err)
		}
		out.Post = post
		r.log.Infow("post-patch rescan complete", "violations", len(post.Violations))
	}
	out.enter(StateRescanned)

	out.Breakdown = reward.Score(out.Pre, oracle, out.Post, out.PatchFailed)
	out.enter(StateScored)
	r.log.Infow("episode scored",
		"f1", out.Breakdown.F1, "bonus", out.Breakdown.PatchDeltaBonus,
		"final", out.Breakdown.FinalReward, "patch_failed", out.Breakdown.PatchFailed)
	return out, nil
}

func (o *Outcome) enter(s State) {
	o.Trace = append(o.Trace, s)
}
