// Package api defines the JSON types the toolkit emits for database listings.
package api

// DatabaseMetadata describes a CodeQL database directory or archive.
type DatabaseMetadata struct {
	// Name is the database name.
	Name string `json:"name"`

	// Language is the canonical CodeQL language id (e.g., "javascript").
	Language string `json:"language"`

	// Path is the database directory or archive on the serving host.
	Path string `json:"path,omitempty"`

	// Archived is true for zip archives.
	Archived bool `json:"archived"`

	// Owner is the repository owner, when known.
	Owner string `json:"owner,omitempty"`

	// Repo is the repository name, when known.
	Repo string `json:"repo,omitempty"`

	// Projname is the repository in "owner/repo" format.
	Projname string `json:"projname,omitempty"`

	// CLIVersion is the CodeQL CLI version that created the database.
	CLIVersion string `json:"cli_version"`

	// CreatedAt is the RFC 3339 creation timestamp.
	CreatedAt string `json:"created_at,omitempty"`

	// SourceSHA is the commit the database was built from.
	SourceSHA string `json:"source_sha,omitempty"`

	// LinesOfCode is the baseline lines of code.
	LinesOfCode int `json:"lines_of_code"`

	// ContentHash is the SHA-256 of an archive.
	ContentHash string `json:"content_hash,omitempty"`

	// Size is the size in bytes of the archive or database directory.
	Size int64 `json:"size"`

	// ResultURL is where an archive can be downloaded from, when served.
	ResultURL string `json:"result_url,omitempty"`
}

// MetadataResponse is returned by the listing endpoints.
type MetadataResponse []DatabaseMetadata

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status      string `json:"status"`
	StorageType string `json:"storage_type,omitempty"`
	Databases   int    `json:"databases"`
}
