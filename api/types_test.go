package api

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDatabaseMetadata_JSONMarshal(t *testing.T) {
	meta := DatabaseMetadata{
		Name:        "app",
		Language:    "go",
		Path:        "/srv/databases/octo/app/go",
		Owner:       "octo",
		Repo:        "app",
		Projname:    "octo/app",
		CLIVersion:  "2.20.0",
		CreatedAt:   "2025-01-01T00:00:00Z",
		SourceSHA:   "a1b2c3",
		LinesOfCode: 4200,
		Size:        1024000,
	}

	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	expectedFields := map[string]interface{}{
		"name":          "app",
		"language":      "go",
		"path":          "/srv/databases/octo/app/go",
		"archived":      false,
		"owner":         "octo",
		"repo":          "app",
		"projname":      "octo/app",
		"cli_version":   "2.20.0",
		"created_at":    "2025-01-01T00:00:00Z",
		"source_sha":    "a1b2c3",
		"lines_of_code": float64(4200),
		"size":          float64(1024000), // JSON numbers are float64
	}

	for key, expected := range expectedFields {
		actual, ok := result[key]
		if !ok {
			t.Errorf("missing JSON field %q", key)
			continue
		}
		if actual != expected {
			t.Errorf("field %q = %v, want %v", key, actual, expected)
		}
	}
	for _, key := range []string{"content_hash", "result_url"} {
		if _, ok := result[key]; ok {
			t.Errorf("empty field %q was not omitted", key)
		}
	}
}

func TestDatabaseMetadata_RoundTrip(t *testing.T) {
	original := DatabaseMetadata{
		Name:        "lib",
		Language:    "javascript",
		Archived:    true,
		Owner:       "octo",
		Repo:        "lib",
		Projname:    "octo/lib",
		CLIVersion:  "0.0.0",
		ContentHash: strings.Repeat("ab", 32),
		Size:        2048,
		ResultURL:   "http://localhost:8080/db/octo/lib/javascript.zip",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded DatabaseMetadata
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestMetadataResponse_Empty(t *testing.T) {
	tests := []struct {
		name string
		resp MetadataResponse
		want string
	}{
		{"empty slice", MetadataResponse{}, "[]"},
		{"nil slice", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json.Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestHealthStatus_JSON(t *testing.T) {
	tests := []struct {
		name   string
		status HealthStatus
		want   string
	}{
		{
			name:   "with storage",
			status: HealthStatus{Status: "ok", StorageType: "gcs", Databases: 3},
			want:   `{"status":"ok","storage_type":"gcs","databases":3}`,
		},
		{
			name:   "without storage",
			status: HealthStatus{Status: "degraded"},
			want:   `{"status":"degraded","databases":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.status)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json.Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}
