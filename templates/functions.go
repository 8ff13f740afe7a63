package templates

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// GetTemplateFunc returns the template functions shared by the report templates
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": FormatDuration,
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("2006-01-02 15:04:05")
		},
		"formatPercent": func(rate float64) string {
			return fmt.Sprintf("%.1f%%", rate)
		},
		"getStatusClass": StatusClass,
		"getStatusText": func(status types.TestStatus) string {
			return strings.ToUpper(StatusClass(status))
		},
		"statusCount": func(stats types.Stats, status types.TestStatus) int {
			return stats.Count(status)
		},
	}
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// StatusClass returns a consistent lowercase status string
func StatusClass(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "pass"
	case types.TestStatusFail:
		return "fail"
	case types.TestStatusSkip:
		return "skip"
	case types.TestStatusError:
		return "error"
	default:
		return "unknown"
	}
}
