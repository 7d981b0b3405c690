// Package repository parses GitHub repository references.
package repository

import (
	"fmt"
	"strings"
)

// Repository identifies a GitHub repository, optionally narrowed to a path
// and a branch.
type Repository struct {
	Owner  string
	Name   string
	Path   string
	Branch string
}

// Parse parses "owner/repo[/path][@branch]".
func Parse(s string) (Repository, error) {
	ref, branch, _ := strings.Cut(strings.TrimSpace(s), "@")

	parts := strings.SplitN(ref, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repository %q: expected owner/repo", s)
	}

	repo := Repository{
		Owner:  parts[0],
		Name:   parts[1],
		Branch: branch,
	}
	if len(parts) == 3 {
		repo.Path = strings.Trim(parts[2], "/")
	}
	return repo, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Repository {
	repo, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return repo
}

// FullName returns "owner/repo".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	s := r.FullName()
	if r.Path != "" {
		s += "/" + r.Path
	}
	if r.Branch != "" {
		s += "@" + r.Branch
	}
	return s
}
