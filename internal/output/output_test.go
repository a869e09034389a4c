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

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestSeverityColor(t *testing.T) {
	assert.NotEmpty(t, SeverityColor("blocking"))
	assert.NotEmpty(t, SeverityColor("suggestion"))
	assert.NotEmpty(t, SeverityColor("tech_debt"))
	assert.Equal(t, "unknown", SeverityColor("unknown"))
}

func TestOutcomeColor(t *testing.T) {
	assert.NotEmpty(t, OutcomeColor("passed"))
	assert.NotEmpty(t, OutcomeColor("auto-approved"))
	assert.NotEmpty(t, OutcomeColor("fixes-pushed"))
	assert.NotEmpty(t, OutcomeColor("blocked"))
	assert.Equal(t, "unknown", OutcomeColor("unknown"))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"ID", "Severity"})
	require.NotNil(t, table)

	table.Append([]string{"B1", "blocking"})
	table.Append([]string{"S1", "suggestion"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "B1"), "table output should contain finding ids")
	assert.True(t, strings.Contains(result, "S1"), "table output should contain finding ids")
}
