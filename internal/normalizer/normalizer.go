// Package normalizer canonicalizes paths and compiler arguments so the
// same file or flag is never recorded twice under two different
// spellings (spec §4.1). Grounded directly on the original
// implementation's _make_absolute_path / _make_compile_args /
// _is_cpp_source (_examples/original_source/yacbi.py), reimplemented in
// Go idiom rather than translated line for line.
package normalizer

import (
	"path/filepath"
	"strings"
)

// pathArgs are the flags whose following (or attached) operand is a
// path that must be made absolute relative to the compile command's
// working directory.
var pathArgs = []string{
	"-include",
	"-isystem",
	"-I",
	"-iquote",
	"--sysroot=",
	"-isysroot",
}

// cppExtensions are the file extensions the driver treats as C++
// sources even when a compile command omits an explicit -x.
var cppExtensions = map[string]bool{
	".cc":  true,
	".cp":  true,
	".cxx": true,
	".cpp": true,
	".CPP": true,
	".c++": true,
	".C":   true,
}

// Normalize makes path absolute (relative to cwd) and cleans it, so it
// can be used as a stable files.path key.
func Normalize(cwd, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(cwd, path))
}

// IsCppSource reports whether path's extension marks it as a C++
// source file, per spec §4.1's child-arg -x upgrade rule.
func IsCppSource(path string) bool {
	return cppExtensions[filepath.Ext(path)]
}

// Args is the result of normalizing one compile command's argument
// vector: the flattened argv to hand the parser, the set of paths
// named by -include (forced includes, reported as pseudo-edges at
// (0,0) per spec §4.5), and whether the original argv already
// contained an explicit -x.
type Args struct {
	All            []string
	ForcedIncludes []string
	HasX           bool
}

// MakeArgs classifies argv plus the configured extra/banned arguments
// into the flattened list the parser receives, dropping anything in
// banned and absolutizing every path-valued flag's operand against cwd
// (spec §4.1's classification table).
func MakeArgs(cwd string, argv, extra, banned []string) Args {
	bannedSet := make(map[string]bool, len(banned))
	for _, b := range banned {
		bannedSet[b] = true
	}

	var out Args
	var forced []string
	seenForced := make(map[string]bool)

	combined := make([]string, 0, len(argv)+len(extra))
	combined = append(combined, argv...)
	combined = append(combined, extra...)

	for i := 0; i < len(combined); i++ {
		arg := combined[i]
		if bannedSet[arg] {
			continue
		}

		switch {
		case arg == "-nostdinc":
			out.All = append(out.All, arg)

		case arg == "-x" || arg == "-Xpreprocessor":
			if arg == "-x" {
				out.HasX = true
			}
			out.All = append(out.All, arg)
			if i+1 < len(combined) {
				i++
				out.All = append(out.All, combined[i])
			}

		case strings.HasPrefix(arg, "-D") || strings.HasPrefix(arg, "-W") || strings.HasPrefix(arg, "-std="):
			out.All = append(out.All, arg)

		case isExactPathArg(arg):
			out.All = append(out.All, arg)
			if i+1 < len(combined) {
				i++
				abs := Normalize(cwd, combined[i])
				if arg == "-include" && !seenForced[abs] {
					seenForced[abs] = true
					forced = append(forced, abs)
				}
				out.All = append(out.All, abs)
			}

		default:
			if prefix, rest, ok := splitAttachedPathArg(arg); ok {
				abs := Normalize(cwd, rest)
				if prefix == "-include" && !seenForced[abs] {
					seenForced[abs] = true
					forced = append(forced, abs)
				}
				out.All = append(out.All, prefix+abs)
			}
			// Arguments matching none of the above classes (e.g. bare
			// -c, -o, positional source paths already known to the
			// caller) are intentionally dropped: the parser only needs
			// the flags above to reproduce the preprocessor's view.
		}
	}

	out.ForcedIncludes = forced
	return out
}

func isExactPathArg(arg string) bool {
	for _, p := range pathArgs {
		if arg == p {
			return true
		}
	}
	return false
}

// splitAttachedPathArg reports whether arg has the form "-Ipath" /
// "-isystempath" / "--sysroot=path" etc., returning the matched flag
// prefix and the remaining path operand.
func splitAttachedPathArg(arg string) (prefix, rest string, ok bool) {
	for _, p := range pathArgs {
		if strings.HasPrefix(arg, p) && len(arg) > len(p) {
			return p, arg[len(p):], true
		}
	}
	return "", "", false
}
