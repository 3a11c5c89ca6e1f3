package domain

import "context"

// ContentStore converts a bundle into line-delimited resource records and
// persists it, returning the stored object key. One implementation exists
// today (S3); adding another managed store must not touch the orchestrator.
type ContentStore interface {
	Store(ctx context.Context, bundle BundleSource) (string, error)
}

// ImportTrigger starts an asynchronous import job against the FHIR datastore
// for the most recently stored object. The descriptor names the bundle being
// orchestrated; current implementations re-derive the target object from the
// bucket instead of using it.
type ImportTrigger interface {
	Execute(ctx context.Context, descriptor string) error
}

// CommandRunner executes an external command line synchronously and returns
// its captured stdout. It is a narrow capability so the process fallback can
// be swapped for a native API call without touching callers.
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
}
