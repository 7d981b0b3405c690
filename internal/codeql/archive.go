package codeql

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ExtractArchive unpacks the zipped database at src into dest. When the
// archive wraps the database in a single top-level directory, that
// directory is stripped so dest itself holds codeql-database.yml.
func ExtractArchive(src, dest string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return &IOError{Op: "open", Path: src, Err: err}
	}
	defer func() {
		_ = reader.Close() //nolint:errcheck // Best effort close in defer
	}()

	strip := commonArchivePrefix(reader.File)

	cleanDest, err := filepath.Abs(dest)
	if err != nil {
		return &IOError{Op: "resolve", Path: dest, Err: err}
	}
	if err := os.MkdirAll(cleanDest, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: cleanDest, Err: err}
	}

	for _, f := range reader.File {
		name := strings.TrimPrefix(f.Name, strip)
		if name == "" {
			continue
		}
		target := filepath.Join(cleanDest, filepath.FromSlash(name))
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(filepath.Separator)) {
			return &IOError{Op: "extract", Path: f.Name, Err: fmt.Errorf("entry escapes %s", cleanDest)}
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return &IOError{Op: "mkdir", Path: target, Err: err}
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &IOError{Op: "open", Path: f.Name, Err: err}
	}
	defer func() {
		_ = rc.Close() //nolint:errcheck // Best effort close in defer
	}()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return &IOError{Op: "create", Path: target, Err: err}
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close() //nolint:errcheck // Already failing
		return &IOError{Op: "write", Path: target, Err: err}
	}
	if err := out.Close(); err != nil {
		return &IOError{Op: "close", Path: target, Err: err}
	}
	return nil
}

// commonArchivePrefix returns "<dir>/" when every entry lives under one
// top-level directory and codeql-database.yml is directly inside it.
func commonArchivePrefix(files []*zip.File) string {
	var top string
	hasConfig := false
	for _, f := range files {
		first, rest, nested := strings.Cut(f.Name, "/")
		if !nested {
			return ""
		}
		if top == "" {
			top = first
		} else if first != top {
			return ""
		}
		if rest == DatabaseConfigFile {
			hasConfig = true
		}
	}
	if top == "" || !hasConfig {
		return ""
	}
	return top + "/"
}

// ArchiveDatabase writes the database directory as a zip to w. Entries are
// rooted at the database name, matching archives produced by
// `codeql database bundle`.
func ArchiveDatabase(db *Database, w io.Writer) error {
	if !db.Validate() {
		return &DatabaseError{Path: db.Path(), Msg: "Invalid CodeQL Database"}
	}

	zw := zip.NewWriter(w)
	root := db.Path()
	prefix := db.Name()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		// Skip previous archives stored inside the database directory.
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".zip") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = path.Join(prefix, filepath.ToSlash(rel))
		if d.IsDir() {
			header.Name += "/"
			_, err := zw.CreateHeader(header)
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close() //nolint:errcheck // Best effort close in defer
		}()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		_ = zw.Close() //nolint:errcheck // Already failing
		return &IOError{Op: "archive", Path: root, Err: err}
	}
	if err := zw.Close(); err != nil {
		return &IOError{Op: "archive", Path: root, Err: err}
	}
	return nil
}
