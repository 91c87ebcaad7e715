package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gitsleuth/gitsleuth/internal/render"
)

func TestValidateFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"table", render.FormatTable},
		{" JSON ", render.FormatJSON},
		{"Yaml", render.FormatYAML},
		{"HTML", render.FormatHTML},
	}

	for _, tc := range cases {
		got, err := render.ValidateFormat(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}

	_, err := render.ValidateFormat("xml")
	require.ErrorIs(t, err, render.ErrUnsupportedFormat)
	require.ErrorContains(t, err, "xml")
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	r := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, render.WriteJSON(&buf, r))

	var got render.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Equal(t, r.Head, got.Head)
	require.Equal(t, r.RunID, got.RunID)
	require.Equal(t, r.TotalLines, got.TotalLines)
	require.Equal(t, r.Languages, got.Languages)
	require.Len(t, got.Contributors, 2)
	require.Equal(t, r.Contributors[0].Key, got.Contributors[0].Key)
	require.Equal(t, r.Contributors[0].Churn, got.Contributors[0].Churn)
	require.Len(t, got.Contributors[0].Commits, 2)
}

func TestWriteJSON_ExactCounts(t *testing.T) {
	t.Parallel()

	// JSON output keeps raw integers; humanization is table-only.
	r := &render.Report{Head: headHex, TotalLines: 1234}

	var buf bytes.Buffer
	require.NoError(t, render.WriteJSON(&buf, r))

	out := buf.String()
	require.Contains(t, out, `"total_lines": 1234`)
	require.NotContains(t, out, "1,234")
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	t.Parallel()

	r := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, render.WriteYAML(&buf, r))

	var got render.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	require.Equal(t, r.Head, got.Head)
	require.Equal(t, r.TotalLines, got.TotalLines)
	require.Equal(t, r.Languages, got.Languages)
	require.Equal(t, r.Contributors[0].TotalLines, got.Contributors[0].TotalLines)
}

func TestWrite_Dispatch(t *testing.T) {
	t.Parallel()

	r := sampleReport(t)

	for _, format := range render.Formats() {
		var buf bytes.Buffer
		require.NoError(t, render.Write(&buf, format, r), format)
		require.NotZero(t, buf.Len(), format)
	}

	var jsonBuf bytes.Buffer
	require.NoError(t, render.Write(&jsonBuf, "JSON", r))
	require.True(t, strings.HasPrefix(jsonBuf.String(), "{"))

	var buf bytes.Buffer
	err := render.Write(&buf, "csv", r)
	require.ErrorIs(t, err, render.ErrUnsupportedFormat)
}
