package codeql

import (
	"strings"
)

// QuerySpecifier addresses a query pack, a suite inside a pack, or a path on
// disk using the `scope/name[@range][:path]` grammar. Empty fields are
// absent. A filesystem reference only sets Path.
type QuerySpecifier struct {
	Scope string
	Name  string
	Range string
	Path  string
}

// LanguageDefault returns the standard query pack for lang,
// codeql/<language>-queries.
func LanguageDefault(lang Language) QuerySpecifier {
	return QuerySpecifier{
		Scope: "codeql",
		Name:  lang.ID() + "-queries",
	}
}

// ParseQuerySpecifier parses s into a QuerySpecifier.
//
// Inputs starting with "/" or "." are filesystem paths. A bare language token
// such as "python" expands to that language's default query pack. Every other
// non-empty input is accepted, with malformed segments kept verbatim.
func ParseQuerySpecifier(s string) (QuerySpecifier, error) {
	if s == "" {
		return QuerySpecifier{}, &PackSpecifierError{Specifier: s, Reason: "empty specifier"}
	}

	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, ".") {
		return QuerySpecifier{Path: s}, nil
	}

	var spec QuerySpecifier
	scope, rest, found := strings.Cut(s, "/")
	if !found {
		if IsKnownLanguage(s) {
			return LanguageDefault(CanonicalizeLanguage(s)), nil
		}
		rest = s
	} else {
		spec.Scope = scope
	}

	var head string
	head, spec.Path, _ = strings.Cut(rest, ":")
	spec.Name, spec.Range, _ = strings.Cut(head, "@")

	return spec, nil
}

// MustParseQuerySpecifier is like ParseQuerySpecifier but panics on error.
func MustParseQuerySpecifier(s string) QuerySpecifier {
	spec, err := ParseQuerySpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// String renders the specifier in the form accepted by ParseQuerySpecifier
// and by the codeql CLI.
func (q QuerySpecifier) String() string {
	if q.IsPath() {
		return q.Path
	}

	var b strings.Builder
	if q.Scope != "" {
		b.WriteString(q.Scope)
		b.WriteByte('/')
	}
	b.WriteString(q.Name)
	if q.Range != "" {
		b.WriteByte('@')
		b.WriteString(q.Range)
	}
	if q.Path != "" {
		b.WriteByte(':')
		b.WriteString(q.Path)
	}
	return b.String()
}

// IsPath reports whether q refers to a filesystem location rather than a pack.
func (q QuerySpecifier) IsPath() bool {
	return q.Scope == "" && q.Name == "" && q.Range == "" && q.Path != ""
}

// IsPack reports whether q names a scoped pack.
func (q QuerySpecifier) IsPack() bool {
	return q.Scope != "" && q.Name != ""
}

// IsZero reports whether no component is set.
func (q QuerySpecifier) IsZero() bool {
	return q == QuerySpecifier{}
}

// FullName returns "scope/name", or just the name when there is no scope.
func (q QuerySpecifier) FullName() string {
	if q.Scope == "" {
		return q.Name
	}
	return q.Scope + "/" + q.Name
}

// PackReference returns "scope/name[@range]" as accepted by `codeql pack download`.
func (q QuerySpecifier) PackReference() string {
	if q.Range == "" {
		return q.FullName()
	}
	return q.FullName() + "@" + q.Range
}

// WithPath returns a copy of q addressing path inside the pack.
func (q QuerySpecifier) WithPath(path string) QuerySpecifier {
	q.Path = path
	return q
}

// WithRange returns a copy of q constrained to the version range r.
func (q QuerySpecifier) WithRange(r string) QuerySpecifier {
	q.Range = r
	return q
}
