// Package parser defines the capability boundary between the indexer
// and whatever actually understands C/C++ source (spec §1's "Parser"
// collaborator): given one compile command, produce the diagnostics,
// include directives, and symbol references libclang would report for
// that translation unit. internal/indexer depends only on this
// interface; internal/parser/clangimpl binds it to a real compiler
// front end.
package parser

import "context"

// Severity mirrors libclang's CXDiagnosticSeverity ordering, used to
// decide which diagnostics are worth surfacing (spec §7: only
// Error/Fatal are reported, Note/Warning are swallowed).
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Diagnostic is one compiler diagnostic attached to a translation unit.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Severity Severity
	Message  string
	Option   string // e.g. "-Wunused-variable"; empty if none
}

// Include is one #include directive resolved to an absolute path by
// the preprocessor. Depth is 1 for a file included directly by the
// translation unit's main file, 2 for a file included by one of those,
// and so on — mirroring libclang's own inclusion-stack depth so the
// indexer can keep only a TU's direct includes (spec §4.5) and let
// transitively included headers earn their own edges once promoted to
// root by the fixpoint traversal.
type Include struct {
	IncludedPath string
	Line         int
	Column       int
	Depth        int
}

// Ref is one AST cursor that resolves to a stable symbol (spec §3):
// the USR identifying the symbol, the cursor kind code, whether this
// cursor is the symbol's definition, and the cursor's own location.
type Ref struct {
	USR          string
	Kind         int
	IsDefinition bool
	File         string
	Line         int
	Column       int
}

// Result is everything the indexer needs out of parsing one
// translation unit.
type Result struct {
	Diagnostics []Diagnostic
	Includes    []Include
	Refs        []Ref
}

// Parser parses one translation unit rooted at file, using argv as the
// full compiler command line (working directory already folded into
// any relative paths argv contains, per spec §4.1).
type Parser interface {
	Parse(ctx context.Context, file string, argv []string) (*Result, error)
	Close() error
}
