package codeql

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseBuildMode(t *testing.T) {
	tests := []struct {
		input   string
		want    BuildMode
		wantErr bool
	}{
		{"none", BuildModeNone, false},
		{"buildless", BuildModeNone, false},
		{" Autobuild ", BuildModeAutobuild, false},
		{"MANUAL", BuildModeManual, false},
		{"", "", true},
		{"make", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBuildMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBuildMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBuildMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadExtractor(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "codeql-extractor")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	manifest := `name: "javascript"
display_name: "JavaScript/TypeScript"
version: 1.22.1
column_kind: "utf16"
build_modes:
  - buildless
  - autobuild
github_api_languages:
  - JavaScript
  - TypeScript
file_types:
  - name: javascript
    display_name: JavaScript
    extensions:
      - .js
      - .mjs
`
	if err := os.WriteFile(filepath.Join(tmpDir, ExtractorFile), []byte(manifest), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	ext, err := LoadExtractor(tmpDir)
	if err != nil {
		t.Fatalf("LoadExtractor() error = %v", err)
	}
	if ext.Path != tmpDir {
		t.Errorf("Path = %q, want %q", ext.Path, tmpDir)
	}
	if ext.DisplayName != "JavaScript/TypeScript" {
		t.Errorf("DisplayName = %q, want %q", ext.DisplayName, "JavaScript/TypeScript")
	}
	if ext.Language().ID() != "javascript" {
		t.Errorf("Language() = %q, want %q", ext.Language().ID(), "javascript")
	}
	if !ext.SupportsBuildMode(BuildModeNone) {
		t.Error("SupportsBuildMode(none) = false, want true for buildless")
	}
	if ext.SupportsBuildMode(BuildModeManual) {
		t.Error("SupportsBuildMode(manual) = true, want false")
	}
	if len(ext.FileTypes) != 1 || len(ext.FileTypes[0].Extensions) != 2 {
		t.Errorf("FileTypes = %+v, want one type with two extensions", ext.FileTypes)
	}
}

func TestLoadExtractor_Errors(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "codeql-extractor-err")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	_, err = LoadExtractor(tmpDir)
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("LoadExtractor(missing) error = %v, want *IOError", err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, ExtractorFile), []byte("name: [unclosed"), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	_, err = LoadExtractor(tmpDir)
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("LoadExtractor(malformed) error = %v, want *FormatError", err)
	}
}
