package templates

import (
	"bytes"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "0ms", FormatDuration(0))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, "2m3s", FormatDuration(123*time.Second))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "pass", StatusClass(types.TestStatusPass))
	assert.Equal(t, "fail", StatusClass(types.TestStatusFail))
	assert.Equal(t, "error", StatusClass(types.TestStatusError))
	assert.Equal(t, "skip", StatusClass(types.TestStatusSkip))
	assert.Equal(t, "unknown", StatusClass(types.TestStatus("weird")))
}

func TestGetTemplateFunc(t *testing.T) {
	tmpl, err := template.New("t").Funcs(GetTemplateFunc()).Parse(
		`{{getStatusText .Status}} {{getStatusClass .Status}} {{formatPercent .Rate}} {{statusCount .Stats "skip"}} {{formatTime .Zero}}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]interface{}{
		"Status": types.TestStatusError,
		"Rate":   66.666,
		"Stats":  types.Stats{Total: 3, Skipped: 2},
		"Zero":   time.Time{},
	})
	require.NoError(t, err)
	assert.Equal(t, "ERROR error 66.7% 2 -", buf.String())
}
