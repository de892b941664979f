package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/treesum/pkg/treesum/types"
)

func TestPlainFormatter_Format(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleReport())
	require.NoError(t, err)

	out := buf.String()

	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "docs/new.txt")
	assert.Contains(t, out, "music/track01.flac")
	assert.Contains(t, out, "permission denied")
	assert.Contains(t, out, "old/gone.txt")
}

func TestPlainFormatter_SummaryLayout(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleReport())
	require.NoError(t, err)

	out := buf.String()

	// Counter lines are right-aligned with zero counters omitted.
	assert.Contains(t, out, "File scan summary:\n")
	assert.Contains(t, out, "        New: 1\n")
	assert.Contains(t, out, "  Untouched: 40\n")
	assert.Contains(t, out, "     Errors: 1\n")
	assert.Contains(t, out, "    Renamed: 1\n")
	assert.Contains(t, out, "    Deleted: 1\n")
	assert.Contains(t, out, "      Total: 45\n")
	assert.NotContains(t, out, "Touched:")
	assert.NotContains(t, out, "Copied:")
}

func TestPlainFormatter_CleanRun(t *testing.T) {
	formatter := &PlainFormatter{}
	var buf bytes.Buffer

	report := &Report{
		Totals: types.Totals{Seen: 7},
		Total:  7,
		Clean:  true,
	}

	err := formatter.Format(&buf, report)
	require.NoError(t, err)

	out := buf.String()

	// Nothing to list: the summary is the whole output.
	assert.True(t, strings.HasPrefix(out, "File scan summary:\n"), "got %q", out)
	assert.Contains(t, out, "  Untouched: 7\n")
	assert.Contains(t, out, "      Total: 7\n")
	assert.NotContains(t, out, "STATUS")
}

func TestPlainFormatter_Registration(t *testing.T) {
	formatter, err := Get("plain")
	require.NoError(t, err)
	assert.IsType(t, &PlainFormatter{}, formatter)
}
