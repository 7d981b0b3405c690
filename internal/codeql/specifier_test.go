package codeql

import (
	"errors"
	"testing"
)

func TestParseQuerySpecifier(t *testing.T) {
	tests := []struct {
		input string
		want  QuerySpecifier
	}{
		{
			input: "codeql/python-queries",
			want:  QuerySpecifier{Scope: "codeql", Name: "python-queries"},
		},
		{
			input: "codeql/python-queries@1.2.3",
			want:  QuerySpecifier{Scope: "codeql", Name: "python-queries", Range: "1.2.3"},
		},
		{
			input: "codeql/python-queries@~1.2.0:codeql-suites/python-code-scanning.qls",
			want:  QuerySpecifier{Scope: "codeql", Name: "python-queries", Range: "~1.2.0", Path: "codeql-suites/python-code-scanning.qls"},
		},
		{
			input: "codeql/python-queries:Security/CWE-079",
			want:  QuerySpecifier{Scope: "codeql", Name: "python-queries", Path: "Security/CWE-079"},
		},
		{
			input: "/abs/path/to/queries",
			want:  QuerySpecifier{Path: "/abs/path/to/queries"},
		},
		{
			input: "./relative/suite.qls",
			want:  QuerySpecifier{Path: "./relative/suite.qls"},
		},
		{
			input: "python",
			want:  QuerySpecifier{Scope: "codeql", Name: "python-queries"},
		},
		{
			input: "kotlin",
			want:  QuerySpecifier{Scope: "codeql", Name: "java-queries"},
		},
		{
			input: "my-pack",
			want:  QuerySpecifier{Name: "my-pack"},
		},
		{
			input: "my-pack@1.0.0",
			want:  QuerySpecifier{Name: "my-pack", Range: "1.0.0"},
		},
		{
			input: "scope/",
			want:  QuerySpecifier{Scope: "scope"},
		},
		{
			input: "scope/name:path@with-at",
			want:  QuerySpecifier{Scope: "scope", Name: "name", Path: "path@with-at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseQuerySpecifier(tt.input)
			if err != nil {
				t.Fatalf("ParseQuerySpecifier(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseQuerySpecifier(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQuerySpecifier_Empty(t *testing.T) {
	_, err := ParseQuerySpecifier("")
	var specErr *PackSpecifierError
	if !errors.As(err, &specErr) {
		t.Fatalf("ParseQuerySpecifier(\"\") error = %v, want *PackSpecifierError", err)
	}
}

func TestMustParseQuerySpecifier_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseQuerySpecifier(\"\") did not panic")
		}
	}()
	MustParseQuerySpecifier("")
}

func TestQuerySpecifier_RoundTrip(t *testing.T) {
	specs := []QuerySpecifier{
		{Scope: "codeql", Name: "go-queries"},
		{Scope: "codeql", Name: "go-queries", Range: "1.0.0"},
		{Scope: "codeql", Name: "go-queries", Path: "codeql-suites/go-code-scanning.qls"},
		{Scope: "codeql", Name: "go-queries", Range: "^0.9.0", Path: "Security"},
		{Scope: "octo", Name: "models", Path: "ext/models.yml"},
		{Path: "/opt/queries/custom.qls"},
		{Path: "./local"},
		{Name: "unscoped-pack"},
		{Name: "unscoped-pack", Range: "2.0.0"},
	}
	for _, lang := range Languages() {
		specs = append(specs, LanguageDefault(lang))
	}

	for _, spec := range specs {
		rendered := spec.String()
		got, err := ParseQuerySpecifier(rendered)
		if err != nil {
			t.Errorf("ParseQuerySpecifier(%q) error: %v", rendered, err)
			continue
		}
		if got != spec {
			t.Errorf("ParseQuerySpecifier(%q) = %+v, want %+v", rendered, got, spec)
		}
	}
}

func TestQuerySpecifier_String(t *testing.T) {
	tests := []struct {
		spec QuerySpecifier
		want string
	}{
		{QuerySpecifier{Scope: "codeql", Name: "java-queries"}, "codeql/java-queries"},
		{QuerySpecifier{Scope: "codeql", Name: "java-queries", Range: "1.0.0"}, "codeql/java-queries@1.0.0"},
		{QuerySpecifier{Scope: "codeql", Name: "java-queries", Path: "a.qls"}, "codeql/java-queries:a.qls"},
		{QuerySpecifier{Path: "/tmp/q.ql"}, "/tmp/q.ql"},
		{QuerySpecifier{Name: "pack"}, "pack"},
		{QuerySpecifier{}, ""},
	}
	for _, tt := range tests {
		if got := tt.spec.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestQuerySpecifier_Predicates(t *testing.T) {
	pack := MustParseQuerySpecifier("codeql/go-queries@1.0.0:suite.qls")
	if !pack.IsPack() || pack.IsPath() || pack.IsZero() {
		t.Errorf("pack predicates wrong for %+v", pack)
	}
	if pack.FullName() != "codeql/go-queries" {
		t.Errorf("FullName() = %q", pack.FullName())
	}
	if pack.PackReference() != "codeql/go-queries@1.0.0" {
		t.Errorf("PackReference() = %q", pack.PackReference())
	}

	path := MustParseQuerySpecifier("./queries")
	if path.IsPack() || !path.IsPath() {
		t.Errorf("path predicates wrong for %+v", path)
	}

	if !(QuerySpecifier{}).IsZero() {
		t.Error("zero specifier not reported as zero")
	}

	unscoped := QuerySpecifier{Name: "pack"}
	if unscoped.FullName() != "pack" {
		t.Errorf("unscoped FullName() = %q, want %q", unscoped.FullName(), "pack")
	}
}

func TestQuerySpecifier_With(t *testing.T) {
	base := LanguageDefault(CanonicalizeLanguage("ruby"))
	withPath := base.WithPath("x.qls")
	withRange := base.WithRange("1.0.0")

	if base.Path != "" || base.Range != "" {
		t.Errorf("With* modified the receiver: %+v", base)
	}
	if withPath.String() != "codeql/ruby-queries:x.qls" {
		t.Errorf("WithPath() = %q", withPath)
	}
	if withRange.String() != "codeql/ruby-queries@1.0.0" {
		t.Errorf("WithRange() = %q", withRange)
	}
}

func TestSuiteSpecifier(t *testing.T) {
	js := CanonicalizeLanguage("javascript")

	tests := []struct {
		suite string
		want  string
	}{
		{"security-extended", "codeql/javascript-queries:codeql-suites/javascript-security-extended.qls"},
		{"security-and-quality", "codeql/javascript-queries:codeql-suites/javascript-security-and-quality.qls"},
		{"code-scanning", "codeql/javascript-queries:codeql-suites/javascript-code-scanning.qls"},
		{"default", "codeql/javascript-queries:codeql-suites/javascript-code-scanning.qls"},
		{"experimental", "codeql/javascript-queries:codeql-suites/javascript-experimental.qls"},
		{"octo/custom-queries@1.0.0", "octo/custom-queries@1.0.0"},
		{"./my-suite.qls", "./my-suite.qls"},
	}

	for _, tt := range tests {
		t.Run(tt.suite, func(t *testing.T) {
			spec, err := SuiteSpecifier(js, tt.suite)
			if err != nil {
				t.Fatalf("SuiteSpecifier(%q) error: %v", tt.suite, err)
			}
			if spec.String() != tt.want {
				t.Errorf("SuiteSpecifier(%q) = %q, want %q", tt.suite, spec.String(), tt.want)
			}
		})
	}

	if _, err := SuiteSpecifier(js, ""); err == nil {
		t.Error("SuiteSpecifier(\"\") expected error, got nil")
	}
}

func TestIsNamedSuite(t *testing.T) {
	for _, s := range []string{"default", "code-scanning", "security-extended", "security-and-quality", "experimental"} {
		if !IsNamedSuite(s) {
			t.Errorf("IsNamedSuite(%q) = false", s)
		}
	}
	if IsNamedSuite("codeql/go-queries") {
		t.Error("IsNamedSuite(\"codeql/go-queries\") = true")
	}
}
