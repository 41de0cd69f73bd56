package violation

import "strings"

// Report is the public-facing schema consumed by the external control
// loop. The conversion is lossy (sources and tool errors are dropped)
// and one-directional.
type Report struct {
	Violations []ReportViolation `json:"violations"`
	Patch      string            `json:"patch,omitempty"`
	Confidence float64           `json:"confidence"`
}

// ReportViolation is the public shape of one violation.
type ReportViolation struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
}

// Confidence derives the report confidence from tool coverage: the
// fraction of adapters that produced usable output.
func Confidence(r ScanResult, totalTools int) float64 {
	if totalTools <= 0 {
		return 0
	}
	ok := totalTools - len(r.ToolErrors)
	if ok < 0 {
		ok = 0
	}
	return float64(ok) / float64(totalTools)
}

// ToReport converts a scan result into the public schema. Severities are
// lowercased per the public contract.
func ToReport(r ScanResult, patch string, confidence float64) Report {
	rep := Report{
		Violations: make([]ReportViolation, 0, len(r.Violations)),
		Patch:      patch,
		Confidence: confidence,
	}
	for _, v := range r.Violations {
		rep.Violations = append(rep.Violations, ReportViolation{
			ID:       v.ID,
			Severity: strings.ToLower(string(v.Severity)),
		})
	}
	return rep
}
