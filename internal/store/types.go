package store

import "time"

// FileRow is one row of the files table (spec §3).
type FileRow struct {
	ID         int64
	Path       string
	WorkingDir string
	LastUpdate time.Time
	IsIncluded bool
}

// IncludeEdge is one (included path, line, column) edge reported by an
// Index for the file it belongs to (spec §3's Include tuple, with the
// target still named by path and minus the including_file_id which is
// supplied by the caller).
type IncludeEdge struct {
	IncludedPath string
	Line         int
	Column       int
}

// RefLocation identifies a (line, column) site within a file.
type RefLocation struct {
	Line   int
	Column int
}

// RefValue is the mergeable payload at one RefLocation for one USR: the
// greater (IsDefinition, Kind) tuple wins across repeated cursor visits
// (spec §3's tie-break rule).
type RefValue struct {
	IsDefinition bool
	Kind         int
}

// Less reports whether v is strictly less than other under the
// (is_definition, kind) ordering — used to decide which of two
// occurrences at the same site wins.
func (v RefValue) Less(other RefValue) bool {
	if v.IsDefinition != other.IsDefinition {
		return !v.IsDefinition && other.IsDefinition
	}
	return v.Kind < other.Kind
}

// Ref is one fully resolved reference row, as returned by the query_*
// functions of spec §4.3/§6.
type Ref struct {
	Path         string
	Line         int
	Column       int
	Kind         int
	Description  string
	IsDefinition bool
}

// IncludingFile is one entry of query_including_files: a file that
// includes the queried path, and the line at which it does so.
type IncludingFile struct {
	Path string
	Line int
}

// KindBaseSpecifier is the cursor kind code marking an inheritance edge;
// refs with this kind constitute the subtype relation (spec §6).
const KindBaseSpecifier = 44

// KindDescription maps a stable kind code (spec §6) to its human-readable
// description, carried over verbatim from the original implementation's
// _KIND_TO_DESC table (_examples/original_source/yacbi.py).
var KindDescription = map[int]string{
	1:   "type declaration",
	2:   "struct declaration",
	3:   "union declaration",
	4:   "class declaration",
	5:   "enum declaration",
	6:   "member declaration",
	7:   "enum constant declaration",
	8:   "function declaration",
	9:   "variable declaration",
	10:  "argument declaration",
	20:  "typedef declaration",
	21:  "method declaration",
	22:  "namespace declaration",
	24:  "constructor declaration",
	25:  "destructor declaration",
	26:  "conversion function declaration",
	27:  "template type parameter",
	28:  "non-type template parameter",
	29:  "template template parameter",
	30:  "function template declaration",
	31:  "class template declaration",
	32:  "class template partial specialization",
	33:  "namespace alias",
	43:  "type reference",
	44:  "base specifier",
	45:  "template reference",
	46:  "namespace reference",
	47:  "member reference",
	48:  "label reference",
	49:  "overloaded declaration reference",
	100: "expression",
	101: "reference",
	102: "member reference",
	103: "function call",
	501: "macro definition",
	502: "macro instantiation",
}

// DescribeKind returns the description for kind, or "???" if unknown —
// matching the original's dict.get(kind, "???") fallback.
func DescribeKind(kind int) string {
	if desc, ok := KindDescription[kind]; ok {
		return desc
	}
	return "???"
}
