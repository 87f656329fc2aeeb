package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would merge PR #%d", 7)
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would merge PR #7")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would merge PR #%d", 7)
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestOutcomeColor(t *testing.T) {
	assert.Contains(t, OutcomeColor("merged"), "merged")
	assert.Contains(t, OutcomeColor("blocked"), "blocked")
	assert.Contains(t, OutcomeColor("failed"), "failed")
	assert.Equal(t, "unknown", OutcomeColor("unknown"))
}

func TestDecisionColor(t *testing.T) {
	assert.Contains(t, DecisionColor("APPROVE"), "APPROVE")
	assert.Contains(t, DecisionColor("REQUEST_CHANGES"), "REQUEST_CHANGES")
	assert.Contains(t, DecisionColor("COMMENT"), "COMMENT")
	assert.Equal(t, "other", DecisionColor("other"))
}

func TestConfidenceColor(t *testing.T) {
	assert.Contains(t, ConfidenceColor(1), "100%")
	assert.Contains(t, ConfidenceColor(2.0/3), "67%")
	assert.Contains(t, ConfidenceColor(0), "0%")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"PR", "Outcome"})
	require.NotNil(t, table)

	table.Append([]string{"#42", "merged"})
	table.Append([]string{"#43", "blocked"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "#42"), "table output should contain PR numbers")
	assert.True(t, strings.Contains(result, "blocked"), "table output should contain outcomes")
}
