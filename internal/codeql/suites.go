package codeql

// DefaultSuite is the suite run when none is configured.
const DefaultSuite = "code-scanning"

// SuiteSpecifier expands a named suite for lang into
// codeql/<language>-queries:codeql-suites/<language>-<suite>.qls.
// "default" is an alias for "code-scanning". Any other value is parsed as a
// raw query specifier.
func SuiteSpecifier(lang Language, suite string) (QuerySpecifier, error) {
	switch suite {
	case "default", "code-scanning":
		suite = "code-scanning"
	case "security-extended", "security-and-quality", "experimental":
	default:
		return ParseQuerySpecifier(suite)
	}
	return LanguageDefault(lang).WithPath("codeql-suites/" + lang.ID() + "-" + suite + ".qls"), nil
}

// IsNamedSuite reports whether suite is one of the built-in suite names.
func IsNamedSuite(suite string) bool {
	switch suite {
	case "default", "code-scanning", "security-extended", "security-and-quality", "experimental":
		return true
	}
	return false
}
