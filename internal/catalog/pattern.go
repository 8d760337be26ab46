package catalog

import (
	"regexp"
	"strings"
)

// asciiIdentifierRe matches legal ASCII identifiers: the boundary
// accepts these without escaping, exactly the legacy behavior
// spec.md §9 says to preserve cautiously rather than silently broaden.
var asciiIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// CheckIdentifier validates name against the storage-boundary policy:
// legal ASCII identifiers pass through; anything containing a quoting
// character or non-ASCII byte is rejected before it can reach a query.
func CheckIdentifier(name string) error {
	if asciiIdentifierRe.MatchString(name) {
		return nil
	}
	return &InvalidIdentifierError{Identifier: name}
}

// QuoteIdentifier double-quotes name for use in a storage-boundary
// query, per spec.md §4.2's naming policy. Callers must have already
// passed name through CheckIdentifier.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral single-quotes s for use in a storage-boundary query.
func QuoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// globToRegexp translates a catalog name-lookup pattern (`%` any-run,
// `_` single character) into an anchored, case-sensitivity-aware
// regexp, mirroring the way internal/core/validate.go compiles its
// own AllowedNamePattern with the standard library's regexp package.
func globToRegexp(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	flags := ""
	if !caseSensitive {
		flags = "(?i)"
	}
	return regexp.Compile(flags + b.String())
}

// matchName reports whether name satisfies pattern under the handle's
// case-sensitivity policy. An empty pattern matches everything.
func matchName(name, pattern string, caseSensitive bool) bool {
	if pattern == "" {
		return true
	}
	re, err := globToRegexp(pattern, caseSensitive)
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

// foldName applies the handle's case-folding policy to name for use as
// a uniqueness-index key (lookup and storage fold identically, per
// spec.md §3).
func foldName(name string, caseSensitive bool) string {
	if caseSensitive {
		return name
	}
	return strings.ToUpper(name)
}
