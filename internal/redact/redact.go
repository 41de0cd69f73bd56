// Package redact scrubs credential material out of finding text before
// it reaches reports. The scanners quote offending manifest lines back
// in their messages, so a finding about a hardcoded secret would
// otherwise republish the secret itself.
package redact

import "regexp"

const mask = "[REDACTED]"

// rules run in order: specific token shapes first, the generic
// assignment catch-all last so it only sees what the earlier rules left.
var rules = []*regexp.Regexp{
	// PEM private key blocks, quoted whole by pattern scanners
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----(?s:.*?)-----END [A-Z ]*PRIVATE KEY-----`),
	// AWS access key IDs (long-term and STS) and secret keys
	regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
	regexp.MustCompile(`(?i)aws_?secret(?:_access)?_key\s*[:=]\s*[A-Za-z0-9/+=]{30,}`),
	// Authorization headers and kubeconfig-style bearer tokens
	regexp.MustCompile(`(?i)\b(?:bearer|token)\s+[A-Za-z0-9\-._~+/]{8,}=*`),
	// base64 payloads of Secret data fields (pull secrets, TLS material)
	regexp.MustCompile(`(?i)(?:\.dockerconfigjson|tls\.key|tls\.crt|ca\.crt)\s*:\s*[A-Za-z0-9+/=]{16,}`),
	// passwords embedded in connection URLs
	regexp.MustCompile(`://[^\s/:@]+:[^\s@]+@`),
	// secret-bearing env and config assignments quoted from manifests.
	// Keyed on the variable name so references like secretName or
	// imagePullSecrets stay readable.
	regexp.MustCompile(`(?i)\b[\w.-]*(?:api[_-]?key|secret|token|password|passwd|credentials)\b\s*[:=]\s*"?[^\s"']+"?`),
}

// Redact replaces recognized credential material in text with [REDACTED].
func Redact(text string) string {
	for _, r := range rules {
		text = r.ReplaceAllString(text, mask)
	}
	return text
}
