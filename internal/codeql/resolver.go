package codeql

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// PackResolverConfig configures a PackResolver.
type PackResolverConfig struct {
	// PackagesRoot is the CodeQL package cache. Defaults to ~/.codeql/packages.
	PackagesRoot string

	// Env is used to find the default package cache.
	Env Environment

	Logger *slog.Logger
}

// PackResolver turns pack references into Packs. Lookup tries a local path,
// then the package cache, and finally returns a reference-only pack.
type PackResolver struct {
	packagesRoot string
	logger       *slog.Logger
}

// NewPackResolver creates a PackResolver.
func NewPackResolver(cfg PackResolverConfig) *PackResolver {
	root := cfg.PackagesRoot
	if root == "" {
		root = PackagesRoot(cfg.Env)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PackResolver{packagesRoot: root, logger: logger}
}

// PackagesRoot returns the package cache directory used by the resolver.
func (r *PackResolver) PackagesRoot() string {
	return r.packagesRoot
}

// Resolve resolves a filesystem path or a pack specifier string.
func (r *PackResolver) Resolve(ref string) (*Pack, error) {
	if ref == "" {
		return nil, &PackSpecifierError{Specifier: ref, Reason: "empty specifier"}
	}

	if pack, ok, err := r.resolveLocal(ref); ok || err != nil {
		return pack, err
	}

	spec, err := ParseQuerySpecifier(ref)
	if err != nil {
		return nil, err
	}
	return r.resolveSpecifier(spec)
}

// ResolveSpecifier resolves an already parsed specifier.
func (r *PackResolver) ResolveSpecifier(spec QuerySpecifier) (*Pack, error) {
	if spec.IsPath() {
		if pack, ok, err := r.resolveLocal(spec.Path); ok || err != nil {
			return pack, err
		}
		return NewPackReference(spec), nil
	}
	return r.resolveSpecifier(spec)
}

func (r *PackResolver) resolveSpecifier(spec QuerySpecifier) (*Pack, error) {
	if pack, ok, err := r.resolveCache(spec); ok || err != nil {
		return pack, err
	}
	r.logger.Debug("pack not found locally, using reference", "pack", spec.String())
	return NewPackReference(spec), nil
}

// resolveLocal loads ref when it names an existing path.
func (r *PackResolver) resolveLocal(ref string) (*Pack, bool, error) {
	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, false, nil
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, false, nil
	}

	pack, err := LoadPack(abs)
	if err != nil {
		return nil, true, err
	}
	r.logger.Debug("resolved pack from local path", "pack", pack.FullName(), "path", pack.Path)
	return pack, true, nil
}

// resolveCache looks up <root>/<scope>/<name>/<version>/qlpack.yml. Without a
// version every cached version is considered and the last in lexical order
// wins.
func (r *PackResolver) resolveCache(spec QuerySpecifier) (*Pack, bool, error) {
	if !spec.IsPack() {
		return nil, false, nil
	}

	base := filepath.Join(r.packagesRoot, spec.Scope, spec.Name)
	var manifest string
	if spec.Range != "" {
		candidate := filepath.Join(base, spec.Range, PackManifestFile)
		if _, err := os.Stat(candidate); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, true, &IOError{Op: "stat", Path: candidate, Err: err}
			}
			return nil, false, nil
		}
		manifest = candidate
	} else {
		matches, err := filepath.Glob(filepath.Join(base, "*", PackManifestFile))
		if err != nil || len(matches) == 0 {
			return nil, false, nil
		}
		sort.Strings(matches)
		manifest = matches[len(matches)-1]
	}

	pack, err := LoadPack(filepath.Dir(manifest))
	if err != nil {
		return nil, true, err
	}
	r.logger.Debug("resolved pack from package cache", "pack", pack.Reference(), "path", pack.Path)
	return pack, true, nil
}
