package domain

import (
	"io"
	"os"
)

// BundleSource is an opaque handle to readable bundle bytes plus a display
// name. Sources are owned by the caller and referenced, not copied, by the
// orchestrator. Implementations may be backed by local files, remote streams,
// or in-memory fixtures.
type BundleSource interface {
	// Open returns a fresh reader over the bundle bytes. The caller closes it.
	Open() (io.ReadCloser, error)
	// Name returns the display name, typically a file path or URI.
	Name() string
}

// FileBundle is a BundleSource backed by a local file path.
type FileBundle struct {
	Path string
}

// Open opens the underlying file for reading.
func (f FileBundle) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// Name returns the file path.
func (f FileBundle) Name() string { return f.Path }

// StoredObject describes a bundle persisted to the content store. Created on
// successful store and immutable thereafter.
type StoredObject struct {
	Bucket    string
	Key       string
	SizeBytes int64
}

// ImportJob captures one import submission against the FHIR datastore. Only
// the submission outcome is observable; job completion inside the managed
// service is not tracked here.
type ImportJob struct {
	InputURI    string
	OutputURI   string
	DatastoreID string
	RoleARN     string
	KmsKeyID    string
	Region      string
	Succeeded   bool
}
