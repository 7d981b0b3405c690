package codeql

import (
	"strings"
)

// Language is a CodeQL language. The zero value is the "none" language.
type Language struct {
	id        string
	name      string
	secondary bool
	custom    bool
}

type languageEntry struct {
	id      string
	name    string
	aliases []string
}

var primaryLanguages = []languageEntry{
	{id: "actions", name: "GitHub Actions"},
	{id: "cpp", name: "C/C++", aliases: []string{"c", "c++", "c-cpp"}},
	{id: "csharp", name: "C#", aliases: []string{"c#", "cs"}},
	{id: "go", name: "Go", aliases: []string{"golang"}},
	{id: "java", name: "Java/Kotlin", aliases: []string{"kotlin", "java-kotlin"}},
	{id: "javascript", name: "JavaScript/TypeScript", aliases: []string{"typescript", "javascript-typescript", "js", "ts"}},
	{id: "python", name: "Python", aliases: []string{"py"}},
	{id: "ruby", name: "Ruby", aliases: []string{"rb"}},
	{id: "rust", name: "Rust"},
	{id: "swift", name: "Swift"},
}

var secondaryLanguages = []languageEntry{
	{id: "properties", name: "Properties"},
	{id: "csv", name: "CSV"},
	{id: "yaml", name: "YAML"},
	{id: "xml", name: "XML"},
	{id: "html", name: "HTML"},
}

var languageIndex = buildLanguageIndex()

func buildLanguageIndex() map[string]Language {
	idx := make(map[string]Language)
	for _, e := range primaryLanguages {
		lang := Language{id: e.id, name: e.name}
		idx[e.id] = lang
		for _, alias := range e.aliases {
			idx[alias] = lang
		}
	}
	for _, e := range secondaryLanguages {
		idx[e.id] = Language{id: e.id, name: e.name, secondary: true}
	}
	return idx
}

// CanonicalizeLanguage maps a language token or alias to its canonical
// language. Unknown tokens produce a custom language carrying the token
// verbatim. An empty token produces the none language.
func CanonicalizeLanguage(token string) Language {
	token = strings.TrimSpace(token)
	if token == "" {
		return Language{}
	}
	if lang, ok := languageIndex[strings.ToLower(token)]; ok {
		return lang
	}
	return Language{id: token, name: token, custom: true}
}

// IsKnownLanguage reports whether token is a registered language id or alias.
func IsKnownLanguage(token string) bool {
	_, ok := languageIndex[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// Languages returns the primary languages in registry order.
func Languages() []Language {
	out := make([]Language, 0, len(primaryLanguages))
	for _, e := range primaryLanguages {
		out = append(out, languageIndex[e.id])
	}
	return out
}

// SecondaryLanguages returns the secondary languages in registry order.
func SecondaryLanguages() []Language {
	out := make([]Language, 0, len(secondaryLanguages))
	for _, e := range secondaryLanguages {
		out = append(out, languageIndex[e.id])
	}
	return out
}

// ID returns the canonical language id, e.g. "javascript".
func (l Language) ID() string { return l.id }

// Name returns the display name, e.g. "JavaScript/TypeScript".
func (l Language) Name() string { return l.name }

// IsNone reports whether l is the empty language.
func (l Language) IsNone() bool { return l.id == "" }

// IsSecondary reports whether l is tracked by CodeQL but is not a scan target.
func (l Language) IsSecondary() bool { return l.secondary }

// IsCustom reports whether l was not found in the registry.
func (l Language) IsCustom() bool { return l.custom }

// IsPrimary reports whether l can be used to create a database.
func (l Language) IsPrimary() bool { return !l.IsNone() && !l.secondary }

// Aliases returns the alternative tokens that map to l.
func (l Language) Aliases() []string {
	for _, e := range primaryLanguages {
		if e.id == l.id && !l.custom {
			return append([]string(nil), e.aliases...)
		}
	}
	return nil
}

func (l Language) String() string {
	if l.IsNone() {
		return "none"
	}
	return l.id
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	*l = CanonicalizeLanguage(string(text))
	return nil
}
