package codeql

import (
	"github.com/data-douser/ghastoolkit-go/api"
)

// Metadata summarizes the database for listings. The size is computed from
// the directory contents.
func (d *Database) Metadata() api.DatabaseMetadata {
	m := api.DatabaseMetadata{
		Name:        d.name,
		Language:    d.language.ID(),
		Path:        d.path,
		CLIVersion:  d.Version(),
		LinesOfCode: d.LinesOfCode(),
	}
	if d.repository != nil {
		m.Owner = d.repository.Owner
		m.Repo = d.repository.Name
		m.Projname = d.repository.FullName()
	}
	if d.config != nil && d.config.CreationMetadata != nil {
		m.CreatedAt = d.config.CreationMetadata.CreationTime
		m.SourceSHA = d.config.CreationMetadata.SHA
	}
	if size, err := DirSize(d.path); err == nil {
		m.Size = size
	}
	return m
}

// Metadata summarizes the archive for listings.
func (a *DatabaseArchive) Metadata() api.DatabaseMetadata {
	m := api.DatabaseMetadata{
		Name:        a.Name,
		Language:    a.Language.ID(),
		Path:        a.Path,
		Archived:    true,
		CLIVersion:  UnknownVersion,
		ContentHash: a.ContentHash,
		Size:        a.Size,
	}
	if a.Repository != nil {
		m.Owner = a.Repository.Owner
		m.Repo = a.Repository.Name
		m.Projname = a.Repository.FullName()
	}
	if a.Config != nil {
		m.LinesOfCode = a.Config.BaselineLinesOfCode
		if cm := a.Config.CreationMetadata; cm != nil {
			if cm.CLIVersion != "" {
				m.CLIVersion = cm.CLIVersion
			}
			m.CreatedAt = cm.CreationTime
			m.SourceSHA = cm.SHA
		}
	}
	return m
}

// Metadata lists every discovered database and archive.
func (d *Discovery) Metadata() api.MetadataResponse {
	out := make(api.MetadataResponse, 0, len(d.Databases)+len(d.Archives))
	for _, db := range d.Databases {
		out = append(out, db.Metadata())
	}
	for _, a := range d.Archives {
		out = append(out, a.Metadata())
	}
	return out
}
