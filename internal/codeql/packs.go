package codeql

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// Packs is a collection of packs found on disk.
type Packs []*Pack

// LoadPacks walks root and loads every directory holding a qlpack.yml.
// .codeql directories, which hold CodeQL's own build output, are skipped.
// The result is sorted by pack type, then by full name.
func LoadPacks(root string) (Packs, error) {
	var packs Packs

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".codeql" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != PackManifestFile {
			return nil
		}

		pack, err := LoadPack(filepath.Dir(path))
		if err != nil {
			return err
		}
		packs = append(packs, pack)
		return nil
	})
	if err != nil {
		return nil, err
	}

	packs.Sort()
	return packs, nil
}

// Sort orders packs by type (library, queries, models, testing) then name.
func (p Packs) Sort() {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Type != p[j].Type {
			return p[i].Type < p[j].Type
		}
		return p[i].FullName() < p[j].FullName()
	})
}

// OfType returns the packs of type t.
func (p Packs) OfType(t PackType) Packs {
	var out Packs
	for _, pack := range p {
		if pack.Type == t {
			out = append(out, pack)
		}
	}
	return out
}

// Find returns the pack with the given full name.
func (p Packs) Find(fullName string) (*Pack, bool) {
	for _, pack := range p {
		if pack.FullName() == fullName {
			return pack, true
		}
	}
	return nil, false
}
