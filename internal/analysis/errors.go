package analysis

import "strings"

// errorIndicators maps the substrings scanned for in message text to the
// severity label they represent. Labels feed the error-priority score.
var errorIndicators = []struct {
	Substring string
	Label     string
}{
	{"critical", "critical"},
	{"exception", "exception"},
	{"traceback", "exception"},
	{"permission denied", "permission"},
	{"failure", "failure"},
	{"failed", "failure"},
	{"timeout", "timeout"},
	{"timed out", "timeout"},
	{"not found", "not_found"},
	{"no such file", "not_found"},
	{"warning", "warning"},
	{"error", "error"},
}

// DetectToolError reports whether text looks like it carries an error.
func DetectToolError(text string) bool {
	return len(ErrorLabels(text)) > 0
}

// ErrorLabels returns the severity labels of every error indicator found
// in text, in table order, deduplicated.
func ErrorLabels(text string) []string {
	lowered := strings.ToLower(text)

	var labels []string
	seen := make(map[string]bool)

	for _, indicator := range errorIndicators {
		if !strings.Contains(lowered, indicator.Substring) {
			continue
		}
		if seen[indicator.Label] {
			continue
		}
		seen[indicator.Label] = true
		labels = append(labels, indicator.Label)
	}

	return labels
}
