// Package display formats query results for the CLI (spec §6's output
// surface). Grounded on the teacher's FormatterOptions{Format} pattern
// (text/json/compact output selected by one flag), retargeted from
// function-tree output to the flat Ref / IncludingFile rows this
// project's queries return.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kubinux/yacbi-go/internal/store"
	"github.com/kubinux/yacbi-go/pkg/pathutil"
)

// Format selects the output rendering for query results.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// jsonRef is the stable wire shape for one Ref in JSON output — kept
// separate from store.Ref so a schema tweak there doesn't silently
// change the CLI's machine-readable contract.
type jsonRef struct {
	Path         string `json:"path"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	Kind         int    `json:"kind"`
	Description  string `json:"description"`
	IsDefinition bool   `json:"is_definition"`
}

// WriteRefs renders refs to w, converting paths to root-relative for
// readability in both text and JSON mode.
func WriteRefs(w io.Writer, refs []store.Ref, root string, format Format) error {
	if format == FormatJSON {
		out := make([]jsonRef, len(refs))
		for i, r := range refs {
			out[i] = jsonRef{
				Path:         pathutil.ToRelative(r.Path, root),
				Line:         r.Line,
				Column:       r.Column,
				Kind:         r.Kind,
				Description:  r.Description,
				IsDefinition: r.IsDefinition,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, r := range refs {
		marker := " "
		if r.IsDefinition {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s:%d:%d: %s\n", marker, pathutil.ToRelative(r.Path, root), r.Line, r.Column, r.Description)
	}
	return nil
}

// jsonIncludingFile mirrors jsonRef's stability rationale for
// IncludingFile.
type jsonIncludingFile struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// WriteIncludingFiles renders the files that include a queried header.
func WriteIncludingFiles(w io.Writer, files []store.IncludingFile, root string, format Format) error {
	if format == FormatJSON {
		out := make([]jsonIncludingFile, len(files))
		for i, f := range files {
			out[i] = jsonIncludingFile{Path: pathutil.ToRelative(f.Path, root), Line: f.Line}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s:%d\n", pathutil.ToRelative(f.Path, root), f.Line)
	}
	return nil
}

// WriteArgs renders a file's stored compile arguments on one line,
// separated by single spaces and without quoting, or as a JSON array in
// JSON mode.
func WriteArgs(w io.Writer, args []string, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(args)
	}
	fmt.Fprintln(w, strings.Join(args, " "))
	return nil
}
