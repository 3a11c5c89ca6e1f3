// Package orchestrator drives the ingestion of FHIR bundles into a content
// store and a FHIR datastore. Bundle sources are opaque readable handles, so
// they can come from local file systems, remote servers, or test fixtures.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"hios/internal/domain"
)

// Orchestrator owns the pending work lists and the two stores that drive the
// pipeline. Registration is builder-style; Orchestrate processes everything
// registered so far.
//
// Usage:
//
//	orch := orchestrator.New(logger).
//		WithContentStore(store).
//		WithImportTrigger(trigger).
//		WithBundle(bundle)
//	err := orch.Orchestrate(ctx)
type Orchestrator struct {
	contentStore  domain.ContentStore
	importTrigger domain.ImportTrigger
	logger        *slog.Logger

	bundles []domain.BundleSource

	// C-CDA documents and HL7v2 messages are accepted for future
	// extensibility but are not drained by the current pipeline; their
	// conversion paths do not exist yet.
	ccdaFiles  []domain.BundleSource
	hl7v2Files []domain.BundleSource
}

// New creates an empty orchestrator logging through the given logger.
func New(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{logger: logger}
}

// WithContentStore sets the content store used during orchestration.
func (o *Orchestrator) WithContentStore(store domain.ContentStore) *Orchestrator {
	o.contentStore = store
	return o
}

// WithImportTrigger sets the FHIR datastore import trigger.
func (o *Orchestrator) WithImportTrigger(trigger domain.ImportTrigger) *Orchestrator {
	o.importTrigger = trigger
	return o
}

// WithBundle appends a single FHIR bundle to the pending list.
func (o *Orchestrator) WithBundle(bundle domain.BundleSource) *Orchestrator {
	o.bundles = append(o.bundles, bundle)
	return o
}

// WithBundles appends every bundle produced by the supplier.
func (o *Orchestrator) WithBundles(supplier func() []domain.BundleSource) *Orchestrator {
	o.bundles = append(o.bundles, supplier()...)
	return o
}

// WithCCDA appends a C-CDA document. Dormant: the current pipeline records
// but does not process these.
func (o *Orchestrator) WithCCDA(doc domain.BundleSource) *Orchestrator {
	o.ccdaFiles = append(o.ccdaFiles, doc)
	return o
}

// WithHL7v2 appends an HL7v2 message. Dormant: the current pipeline records
// but does not process these.
func (o *Orchestrator) WithHL7v2(msg domain.BundleSource) *Orchestrator {
	o.hl7v2Files = append(o.hl7v2Files, msg)
	return o
}

// Orchestrate drives each registered bundle through store then trigger, in
// insertion order, sequentially: a bundle's trigger call never begins before
// its own store call completes, and there is no parallelism across bundles.
// The first failure aborts the remaining loop and propagates.
func (o *Orchestrator) Orchestrate(ctx context.Context) error {
	if o.contentStore == nil || o.importTrigger == nil {
		return domain.ErrConfiguration("content store and import trigger must be provided before orchestration")
	}

	o.logger.Info("orchestrating",
		"bundles", len(o.bundles),
		"ccda_documents", len(o.ccdaFiles),
		"hl7v2_messages", len(o.hl7v2Files),
	)

	for _, bundle := range o.bundles {
		o.logger.Info("processing bundle", "bundle", bundle.Name())

		if _, err := o.contentStore.Store(ctx, bundle); err != nil {
			return fmt.Errorf("store bundle %s: %w", bundle.Name(), err)
		}
		if err := o.importTrigger.Execute(ctx, bundle.Name()); err != nil {
			return fmt.Errorf("trigger import for %s: %w", bundle.Name(), err)
		}
	}

	return nil
}
