package episode

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/confcritic/internal/adapters"
	"github.com/dshills/confcritic/internal/artifact"
	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/patch"
	"github.com/dshills/confcritic/internal/rescan"
	"github.com/dshills/confcritic/internal/toolcfg"
	"github.com/dshills/confcritic/internal/violation"
)

const episodeYAML = `kind: Deployment
spec:
  privileged: true
`

// privilegedSpy flags any content containing the privileged marker, so
// a patch that removes it visibly changes the post-patch scan.
func privilegedSpy() *adapters.MockAdapter {
	return &adapters.MockAdapter{
		ToolName: finding.ToolLinter,
		ScanFunc: func(artifactPath string) ([]finding.Finding, *finding.ToolError) {
			data, err := os.ReadFile(artifactPath)
			if err != nil {
				return nil, &finding.ToolError{Tool: finding.ToolLinter, Reason: finding.ErrUnparsable, Detail: err.Error()}
			}
			if strings.Contains(string(data), "privileged: true") {
				return []finding.Finding{
					{Tool: finding.ToolLinter, RuleID: "privileged-container", Severity: finding.SeverityHigh, Resource: "Deployment/web"},
				}, nil
			}
			return nil, nil
		},
	}
}

func newTestRunner(t *testing.T) (*Runner, *artifact.Artifact) {
	t.Helper()
	tables, err := toolcfg.LoadBuiltin()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "deploy.yaml")
	if err := os.WriteFile(path, []byte(episodeYAML), 0644); err != nil {
		t.Fatal(err)
	}
	art, err := artifact.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	coord := rescan.New(tables, nil, privilegedSpy())
	return NewRunner(coord, nil), art
}

func testOracle() []violation.Violation {
	return []violation.Violation{{
		ID:       violation.MakeID("Deployment/web", "privileged-container"),
		Severity: finding.SeverityHigh,
		Resource: "Deployment/web",
		Category: "privileged-container",
	}}
}

func TestRunWithoutPatch(t *testing.T) {
	runner, art := newTestRunner(t)

	out, err := runner.Run(context.Background(), art, nil, testOracle())
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Pre.Violations) != 1 {
		t.Fatalf("pre violations = %d, want 1", len(out.Pre.Violations))
	}
	if !reflect.DeepEqual(out.Post, out.Pre) {
		t.Error("without a patch, post must equal pre")
	}
	if out.PatchFailed {
		t.Error("no patch proposed, patch_failed must be false")
	}
	if out.Breakdown.PatchDeltaBonus != 0 {
		t.Errorf("bonus = %v, want 0 without a patch", out.Breakdown.PatchDeltaBonus)
	}
	if out.Breakdown.F1 != 1 {
		t.Errorf("f1 = %v, want 1 for perfect detection", out.Breakdown.F1)
	}

	wantTrace := []State{StateUnscanned, StateScanned, StateRescanned, StateScored}
	if !reflect.DeepEqual(out.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", out.Trace, wantTrace)
	}
}

func TestRunAppliedPatch(t *testing.T) {
	runner, art := newTestRunner(t)

	diff := `@@ -2,2 +2,2 @@
 spec:
-  privileged: true
+  privileged: false
`
	spec := &patch.Spec{Format: patch.FormatUnifiedDiff, Content: diff, TargetPath: art.Path}

	out, err := runner.Run(context.Background(), art, spec, testOracle())
	if err != nil {
		t.Fatal(err)
	}

	if !out.PatchResult.Applied {
		t.Fatalf("patch rejected: %s: %v", out.PatchResult.Reason, out.PatchResult.Err)
	}
	if len(out.Post.Violations) != 0 {
		t.Errorf("post violations = %+v, want none after the fix", out.Post.Violations)
	}
	if out.Breakdown.PatchDeltaBonus != 0.3 {
		t.Errorf("bonus = %v, want full 0.3", out.Breakdown.PatchDeltaBonus)
	}
	if out.Breakdown.FinalReward != 1 {
		t.Errorf("final reward = %v, want 1", out.Breakdown.FinalReward)
	}

	wantTrace := []State{StateUnscanned, StateScanned, StatePatchAttempted, StatePatchApplied, StateRescanned, StateScored}
	if !reflect.DeepEqual(out.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", out.Trace, wantTrace)
	}
}

func TestRunRejectedPatch(t *testing.T) {
	runner, art := newTestRunner(t)

	diff := `@@ -2,2 +2,2 @@
 spec:
-  privileged: maybe
+  privileged: false
`
	spec := &patch.Spec{Format: patch.FormatUnifiedDiff, Content: diff, TargetPath: art.Path}

	out, err := runner.Run(context.Background(), art, spec, testOracle())
	if err != nil {
		t.Fatal(err)
	}

	if out.PatchResult.Applied {
		t.Fatal("expected the mismatched patch to be rejected")
	}
	if !out.PatchFailed {
		t.Error("patch_failed must be set after rejection")
	}
	if !reflect.DeepEqual(out.Post, out.Pre) {
		t.Error("rejected patch is a no-op, post must equal pre")
	}
	if out.Breakdown.PatchDeltaBonus != 0 {
		t.Errorf("bonus = %v, want 0 after rejection", out.Breakdown.PatchDeltaBonus)
	}

	wantTrace := []State{StateUnscanned, StateScanned, StatePatchAttempted, StatePatchRejected, StateRescanned, StateScored}
	if !reflect.DeepEqual(out.Trace, wantTrace) {
		t.Errorf("trace = %v, want %v", out.Trace, wantTrace)
	}
}

func TestRunCarriesArtifactType(t *testing.T) {
	runner, art := newTestRunner(t)
	out, err := runner.Run(context.Background(), art, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.ArtifactType != artifact.TypeKubernetes {
		t.Errorf("artifact type = %s, want kubernetes", out.ArtifactType)
	}
}
