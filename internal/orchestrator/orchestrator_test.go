package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hios/internal/domain"
)

type memBundle struct {
	name string
	data string
}

func (b memBundle) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(b.data)), nil
}

func (b memBundle) Name() string { return b.name }

type scriptedStore struct {
	calls   []string
	failOn  string
	journal *[]string
}

func (s *scriptedStore) Store(_ context.Context, bundle domain.BundleSource) (string, error) {
	s.calls = append(s.calls, bundle.Name())
	*s.journal = append(*s.journal, "store:"+bundle.Name())
	if bundle.Name() == s.failOn {
		return "", domain.ErrStorage(errors.New("disk full"), "store %s", bundle.Name())
	}
	return "key-" + bundle.Name(), nil
}

type scriptedTrigger struct {
	calls   []string
	failOn  string
	journal *[]string
}

func (t *scriptedTrigger) Execute(_ context.Context, descriptor string) error {
	t.calls = append(t.calls, descriptor)
	*t.journal = append(*t.journal, "trigger:"+descriptor)
	if descriptor == t.failOn {
		return domain.ErrTrigger(nil, "import rejected for %s", descriptor)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOrchestrator_RequiresStoreAndTrigger(t *testing.T) {
	t.Parallel()

	journal := []string{}
	store := &scriptedStore{journal: &journal}
	trigger := &scriptedTrigger{journal: &journal}

	cases := []struct {
		name string
		orch *Orchestrator
	}{
		{"neither", New(testLogger())},
		{"store only", New(testLogger()).WithContentStore(store)},
		{"trigger only", New(testLogger()).WithImportTrigger(trigger)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.orch.WithBundle(memBundle{name: "a.json"}).Orchestrate(context.Background())
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
			assert.Empty(t, journal, "no I/O may happen before configuration is validated")
		})
	}
}

func TestOrchestrator_StoreThenTriggerPerBundleInOrder(t *testing.T) {
	t.Parallel()

	journal := []string{}
	store := &scriptedStore{journal: &journal}
	trigger := &scriptedTrigger{journal: &journal}

	orch := New(testLogger()).
		WithContentStore(store).
		WithImportTrigger(trigger).
		WithBundle(memBundle{name: "a.json"}).
		WithBundles(func() []domain.BundleSource {
			return []domain.BundleSource{memBundle{name: "b.json"}, memBundle{name: "c.json"}}
		})

	require.NoError(t, orch.Orchestrate(context.Background()))

	assert.Equal(t, []string{
		"store:a.json", "trigger:a.json",
		"store:b.json", "trigger:b.json",
		"store:c.json", "trigger:c.json",
	}, journal)
}

func TestOrchestrator_StoreFailureAbortsRemainingBundles(t *testing.T) {
	t.Parallel()

	journal := []string{}
	store := &scriptedStore{failOn: "b.json", journal: &journal}
	trigger := &scriptedTrigger{journal: &journal}

	orch := New(testLogger()).
		WithContentStore(store).
		WithImportTrigger(trigger).
		WithBundle(memBundle{name: "a.json"}).
		WithBundle(memBundle{name: "b.json"}).
		WithBundle(memBundle{name: "c.json"})

	err := orch.Orchestrate(context.Background())
	require.Error(t, err)

	var storeErr *domain.StorageError
	assert.ErrorAs(t, err, &storeErr, "the underlying failure must stay observable")

	assert.Equal(t, []string{
		"store:a.json", "trigger:a.json",
		"store:b.json",
	}, journal, "the failing bundle's trigger and all later bundles must not run")
}

func TestOrchestrator_TriggerFailureAbortsRemainingBundles(t *testing.T) {
	t.Parallel()

	journal := []string{}
	store := &scriptedStore{journal: &journal}
	trigger := &scriptedTrigger{failOn: "a.json", journal: &journal}

	orch := New(testLogger()).
		WithContentStore(store).
		WithImportTrigger(trigger).
		WithBundle(memBundle{name: "a.json"}).
		WithBundle(memBundle{name: "b.json"})

	err := orch.Orchestrate(context.Background())
	require.Error(t, err)

	var trigErr *domain.TriggerError
	assert.ErrorAs(t, err, &trigErr)
	assert.Equal(t, []string{"store:a.json", "trigger:a.json"}, journal)
}

func TestOrchestrator_CCDAAndHL7v2AreDormant(t *testing.T) {
	t.Parallel()

	journal := []string{}
	store := &scriptedStore{journal: &journal}
	trigger := &scriptedTrigger{journal: &journal}

	orch := New(testLogger()).
		WithContentStore(store).
		WithImportTrigger(trigger).
		WithCCDA(memBundle{name: "doc.xml"}).
		WithHL7v2(memBundle{name: "msg.hl7"})

	require.NoError(t, orch.Orchestrate(context.Background()))
	assert.Empty(t, journal, "C-CDA and HL7v2 lists are recorded but not drained")
}

func TestOrchestrator_ExactlyOneTriggerPerBundle(t *testing.T) {
	t.Parallel()

	journal := []string{}
	store := &scriptedStore{journal: &journal}
	trigger := &scriptedTrigger{journal: &journal}

	orch := New(testLogger()).
		WithContentStore(store).
		WithImportTrigger(trigger)
	for _, name := range []string{"a.json", "b.json", "c.json", "d.json"} {
		orch.WithBundle(memBundle{name: name})
	}

	require.NoError(t, orch.Orchestrate(context.Background()))
	assert.Len(t, store.calls, 4)
	assert.Len(t, trigger.calls, 4)
}
