package healthlake

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hios/internal/domain"
)

type mockLister struct {
	objects []types.Object
	err     error

	// pages, when set, is served one slice per call with truncation markers;
	// tokens records the continuation token received on each call.
	pages  [][]types.Object
	tokens []*string
	calls  int
}

func (m *mockLister) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.pages) == 0 {
		return &s3.ListObjectsV2Output{Contents: m.objects}, nil
	}

	m.tokens = append(m.tokens, params.ContinuationToken)
	page := m.pages[m.calls]
	m.calls++
	out := &s3.ListObjectsV2Output{
		Contents:    page,
		IsTruncated: aws.Bool(m.calls < len(m.pages)),
	}
	if m.calls < len(m.pages) {
		out.NextContinuationToken = aws.String(fmt.Sprintf("token-%d", m.calls))
	}
	return out, nil
}

type mockRunner struct {
	commands []string
	output   string
	err      error
}

func (m *mockRunner) Run(_ context.Context, command string) (string, error) {
	m.commands = append(m.commands, command)
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

func s3Object(key string, modified time.Time) types.Object {
	return types.Object{Key: aws.String(key), LastModified: aws.Time(modified)}
}

func newTestTrigger(lister *mockLister, runner *mockRunner) *CLIImportTrigger {
	return NewCLIImportTrigger(lister, runner, testLogger(),
		"us-east-2", "datastore-1", "bundles", "kms-key-1", "arn:aws:iam::123456789012:role/import-role")
}

func TestCLIImportTrigger_Execute_BuildsImportCommand(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)
	lister := &mockLister{objects: []types.Object{
		s3Object("old_bundle.json.ndjson", base),
		s3Object("new_bundle.json.ndjson", base.Add(time.Hour)),
		s3Object("raw_bundle.json", base.Add(2*time.Hour)), // wrong extension
	}}
	runner := &mockRunner{output: `{"JobId": "job-1"}`}
	trigger := newTestTrigger(lister, runner)

	err := trigger.Execute(context.Background(), "bundle.json")
	require.NoError(t, err)
	assert.True(t, trigger.Succeeded())

	require.Len(t, runner.commands, 1)
	assert.Equal(t,
		`aws healthlake start-fhir-import-job `+
			`--input-data-config S3Uri=s3://bundles/new_bundle.json.ndjson `+
			`--datastore-id datastore-1 `+
			`--data-access-role-arn "arn:aws:iam::123456789012:role/import-role" `+
			`--job-output-data-config '{"S3Configuration": {"S3Uri":"s3://bundles/output","KmsKeyId":"kms-key-1"}}' `+
			`--region us-east-2`,
		runner.commands[0])
}

func TestCLIImportTrigger_Execute_NoEligibleObjects(t *testing.T) {
	t.Parallel()

	lister := &mockLister{objects: []types.Object{
		s3Object("bundle.json", time.Now()), // not .ndjson
	}}
	runner := &mockRunner{}
	trigger := newTestTrigger(lister, runner)

	err := trigger.Execute(context.Background(), "bundle.json")
	require.Error(t, err)
	assert.False(t, trigger.Succeeded())
	assert.Empty(t, runner.commands, "no command may run when no object is eligible")

	var trigErr *domain.TriggerError
	assert.ErrorAs(t, err, &trigErr)
}

func TestCLIImportTrigger_Execute_ListFailure(t *testing.T) {
	t.Parallel()

	lister := &mockLister{err: errors.New("access denied")}
	trigger := newTestTrigger(lister, &mockRunner{})

	err := trigger.Execute(context.Background(), "bundle.json")
	require.Error(t, err)
	assert.False(t, trigger.Succeeded())
	assert.ErrorContains(t, err, "access denied")
}

func TestCLIImportTrigger_Execute_CommandFailure(t *testing.T) {
	t.Parallel()

	lister := &mockLister{objects: []types.Object{
		s3Object("bundle.json.ndjson", time.Now()),
	}}
	runner := &mockRunner{err: errors.New("command exited with code 255")}
	trigger := newTestTrigger(lister, runner)

	err := trigger.Execute(context.Background(), "bundle.json")
	require.Error(t, err)
	assert.False(t, trigger.Succeeded())

	var trigErr *domain.TriggerError
	require.ErrorAs(t, err, &trigErr)
	assert.ErrorContains(t, err, "code 255")
}

func TestCLIImportTrigger_Execute_SuccessFlagResets(t *testing.T) {
	t.Parallel()

	lister := &mockLister{objects: []types.Object{
		s3Object("bundle.json.ndjson", time.Now()),
	}}
	runner := &mockRunner{}
	trigger := newTestTrigger(lister, runner)

	require.NoError(t, trigger.Execute(context.Background(), "bundle.json"))
	assert.True(t, trigger.Succeeded())

	runner.err = errors.New("boom")
	require.Error(t, trigger.Execute(context.Background(), "bundle.json"))
	assert.False(t, trigger.Succeeded(), "flag must track the most recent execution")
}

func TestCLIImportTrigger_LatestObjectKey_TieBreak(t *testing.T) {
	t.Parallel()

	tied := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)
	lister := &mockLister{objects: []types.Object{
		s3Object("a.ndjson", tied),
		s3Object("b.ndjson", tied),
	}}
	trigger := newTestTrigger(lister, &mockRunner{})

	key, err := trigger.LatestObjectKey(context.Background())
	require.NoError(t, err)
	// Any maximal element is acceptable; this implementation keeps the last.
	assert.Equal(t, "b.ndjson", key)
}

func TestCLIImportTrigger_LatestObjectKey_PagesThroughListing(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 8, 30, 12, 0, 0, 0, time.UTC)
	lister := &mockLister{pages: [][]types.Object{
		{
			s3Object("first-page_bundle.json.ndjson", base),
		},
		{
			s3Object("second-page_bundle.json.ndjson", base.Add(time.Hour)),
		},
		{
			s3Object("third-page_bundle.json", base.Add(2*time.Hour)), // wrong extension
		},
	}}
	trigger := newTestTrigger(lister, &mockRunner{})

	key, err := trigger.LatestObjectKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second-page_bundle.json.ndjson", key, "the newest eligible object may sit past the first page")

	assert.Equal(t, 3, lister.calls, "every page must be visited")
	require.Len(t, lister.tokens, 3)
	assert.Nil(t, lister.tokens[0])
	assert.Equal(t, "token-1", aws.ToString(lister.tokens[1]))
	assert.Equal(t, "token-2", aws.ToString(lister.tokens[2]))
}
