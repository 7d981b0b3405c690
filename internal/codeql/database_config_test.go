package codeql

import (
	"errors"
	"testing"
	"time"
)

func TestParseDatabaseConfig(t *testing.T) {
	cfg, err := ParseDatabaseConfig([]byte(testDatabaseConfig), "codeql-database.yml")
	if err != nil {
		t.Fatalf("ParseDatabaseConfig() error = %v", err)
	}

	if cfg.SourceLocationPrefix != "/home/runner/work/demo/demo" {
		t.Errorf("SourceLocationPrefix = %q", cfg.SourceLocationPrefix)
	}
	if cfg.Language().ID() != "javascript" {
		t.Errorf("Language() = %q, want %q", cfg.Language().ID(), "javascript")
	}
	if cfg.BaselineLinesOfCode != 1234 {
		t.Errorf("BaselineLinesOfCode = %d, want 1234", cfg.BaselineLinesOfCode)
	}
	if cfg.BuildMode != BuildModeNone {
		t.Errorf("BuildMode = %q, want %q", cfg.BuildMode, BuildModeNone)
	}
	if !cfg.Finalised {
		t.Error("Finalised = false, want true")
	}
	if cfg.CreationMetadata == nil || cfg.CreationMetadata.CLIVersion != "2.19.3" {
		t.Fatalf("CreationMetadata = %+v, want cliVersion 2.19.3", cfg.CreationMetadata)
	}

	created, ok := cfg.CreationMetadata.Time()
	if !ok {
		t.Fatal("CreationMetadata.Time() ok = false, want true")
	}
	want := time.Date(2024, 10, 1, 12, 34, 56, 789000000, time.UTC)
	if !created.Equal(want) {
		t.Errorf("CreationMetadata.Time() = %v, want %v", created, want)
	}
}

func TestParseDatabaseConfig_BuildModeSpellings(t *testing.T) {
	tests := []struct {
		yaml string
		want BuildMode
	}{
		{"buildMode: buildless\n", BuildModeNone},
		{"buildMode: autobuild\n", BuildModeAutobuild},
		{"buildMode: something-new\n", BuildMode("something-new")},
		{"primaryLanguage: go\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			cfg, err := ParseDatabaseConfig([]byte(tt.yaml), "test.yml")
			if err != nil {
				t.Fatalf("ParseDatabaseConfig() error = %v", err)
			}
			if cfg.BuildMode != tt.want {
				t.Errorf("BuildMode = %q, want %q", cfg.BuildMode, tt.want)
			}
		})
	}
}

func TestParseDatabaseConfig_Malformed(t *testing.T) {
	_, err := ParseDatabaseConfig([]byte("primaryLanguage: [\n"), "broken.yml")
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("ParseDatabaseConfig() error = %v, want *FormatError", err)
	}
	if formatErr.Path != "broken.yml" {
		t.Errorf("FormatError.Path = %q, want %q", formatErr.Path, "broken.yml")
	}
}

func TestCreationMetadata_Time(t *testing.T) {
	var nilMeta *CreationMetadata
	if _, ok := nilMeta.Time(); ok {
		t.Error("nil Time() ok = true, want false")
	}
	if _, ok := (&CreationMetadata{CreationTime: "yesterday"}).Time(); ok {
		t.Error("Time() ok = true for an unparsable timestamp, want false")
	}
	got, ok := (&CreationMetadata{CreationTime: "2024-01-02T03:04:05+02:00"}).Time()
	if !ok {
		t.Fatal("Time() ok = false, want true")
	}
	if got.Location() != time.UTC || got.Hour() != 1 {
		t.Errorf("Time() = %v, want 01:04:05 UTC", got)
	}
}
