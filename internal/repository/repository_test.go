package repository

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Repository
		wantErr bool
	}{
		{"octo/app", Repository{Owner: "octo", Name: "app"}, false},
		{" octo/app ", Repository{Owner: "octo", Name: "app"}, false},
		{"octo/app@main", Repository{Owner: "octo", Name: "app", Branch: "main"}, false},
		{"octo/app/services/api", Repository{Owner: "octo", Name: "app", Path: "services/api"}, false},
		{"octo/app/src/@release/1.x", Repository{Owner: "octo", Name: "app", Path: "src", Branch: "release/1.x"}, false},
		{"octo", Repository{}, true},
		{"/app", Repository{}, true},
		{"octo/", Repository{}, true},
		{"", Repository{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRepository_String(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"octo/app", "octo/app"},
		{"octo/app@main", "octo/app@main"},
		{"octo/app/src/", "octo/app/src"},
		{"octo/app/src@dev", "octo/app/src@dev"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			repo := MustParse(tt.input)
			if got := repo.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := repo.FullName(); got != "octo/app" {
				t.Errorf("FullName() = %q, want %q", got, "octo/app")
			}
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse(invalid) did not panic")
		}
	}()
	MustParse("not-a-repo")
}
