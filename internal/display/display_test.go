package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubinux/yacbi-go/internal/store"
)

func TestWriteRefsTextMarksDefinitions(t *testing.T) {
	var buf bytes.Buffer
	refs := []store.Ref{
		{Path: "/proj/a.cpp", Line: 3, Column: 1, Description: "function declaration", IsDefinition: true},
		{Path: "/proj/b.cpp", Line: 7, Column: 2, Description: "reference", IsDefinition: false},
	}
	require.NoError(t, WriteRefs(&buf, refs, "/proj", FormatText))
	out := buf.String()
	assert.Contains(t, out, "* a.cpp:3:1: function declaration")
	assert.Contains(t, out, "  b.cpp:7:2: reference")
}

func TestWriteRefsJSON(t *testing.T) {
	var buf bytes.Buffer
	refs := []store.Ref{{Path: "/proj/a.cpp", Line: 3, Column: 1, Description: "function declaration", IsDefinition: true}}
	require.NoError(t, WriteRefs(&buf, refs, "/proj", FormatJSON))
	assert.Contains(t, buf.String(), `"path": "a.cpp"`)
}

func TestWriteIncludingFilesText(t *testing.T) {
	var buf bytes.Buffer
	files := []store.IncludingFile{{Path: "/proj/a.cpp", Line: 4}}
	require.NoError(t, WriteIncludingFiles(&buf, files, "/proj", FormatText))
	assert.Equal(t, "a.cpp:4\n", buf.String())
}

func TestWriteArgsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArgs(&buf, []string{"-Wall", "-std=c++17"}, FormatText))
	assert.Equal(t, "-Wall -std=c++17\n", buf.String())
}
