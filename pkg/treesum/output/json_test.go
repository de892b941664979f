package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleReport())
	require.NoError(t, err)

	var decoded jsonOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Len(t, decoded.Listings, 3)
	assert.Equal(t, "docs/new.txt", decoded.Listings[0].Path)
	assert.Equal(t, "new", decoded.Listings[0].Status)
	assert.Equal(t, "music/track01.flac", decoded.Listings[1].OldPath)
	assert.Equal(t, []string{"old/gone.txt"}, decoded.Deleted)

	assert.Equal(t, 1, decoded.Totals.New)
	assert.Equal(t, 40, decoded.Totals.Seen)

	assert.Equal(t, 44, decoded.Stats.Files)
	assert.Equal(t, int64(1<<20), decoded.Stats.BytesRead)
	assert.Equal(t, "1.5s", decoded.Stats.Duration)

	assert.Equal(t, "/srv/archive", decoded.Meta.Root)
	assert.Equal(t, "sha1sum.txt", decoded.Meta.Manifest)
	assert.Equal(t, "sha1", decoded.Meta.Algorithm)
	assert.Equal(t, 45, decoded.Meta.Total)
	assert.Equal(t, 1, decoded.Meta.Deleted)
	assert.False(t, decoded.Meta.Clean)
	assert.True(t, decoded.Meta.Written)
}

func TestJSONFormatter_OmitsEmptyFields(t *testing.T) {
	formatter := &JSONFormatter{}
	var buf bytes.Buffer

	report := sampleReport()
	report.Deleted = nil

	err := formatter.Format(&buf, report)
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, `"deleted": [`)
	assert.NotContains(t, out, `"old_path": ""`)
}

func TestJSONFormatter_Registration(t *testing.T) {
	formatter, err := Get("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, formatter)
}

func TestJSONLFormatter_Format(t *testing.T) {
	formatter := &JSONLFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, sampleReport())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4, "three listings plus one deleted path")

	var first Listing
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, Listing{Path: "docs/new.txt", Status: "new"}, first)

	var last Listing
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, Listing{Path: "old/gone.txt", Status: "deleted"}, last)
}

func TestJSONLFormatter_EmptyReport(t *testing.T) {
	formatter := &JSONLFormatter{}
	var buf bytes.Buffer

	err := formatter.Format(&buf, &Report{})
	require.NoError(t, err)
	assert.Zero(t, buf.Len())
}
