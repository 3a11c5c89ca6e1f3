package healthlake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"hios/internal/domain"
)

// Compile-time check: CLIImportTrigger implements the import trigger port.
var _ domain.ImportTrigger = (*CLIImportTrigger)(nil)

const ndjsonSuffix = ".ndjson"

// S3ListAPI is the subset of the S3 client used to locate the import input.
type S3ListAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// CLIImportTrigger starts a HealthLake FHIR import job through the AWS CLI.
// The native StartFHIRImportJob API call is not wired here; the command
// runner is the fallback transport until it is.
//
// Execute ignores its descriptor and re-derives the import input as the most
// recently modified .ndjson object in the bucket. Under concurrent uploads
// this only approximates "the object just stored".
type CLIImportTrigger struct {
	s3Client    S3ListAPI
	runner      domain.CommandRunner
	logger      *slog.Logger
	bucket      string
	datastoreID string
	roleARN     string
	kmsKeyID    string
	region      string

	succeeded bool
}

// NewCLIImportTrigger creates a trigger for the given datastore and bucket.
func NewCLIImportTrigger(s3Client S3ListAPI, runner domain.CommandRunner, logger *slog.Logger, region, datastoreID, bucket, kmsKeyID, roleARN string) *CLIImportTrigger {
	return &CLIImportTrigger{
		s3Client:    s3Client,
		runner:      runner,
		logger:      logger,
		bucket:      bucket,
		datastoreID: datastoreID,
		roleARN:     roleARN,
		kmsKeyID:    kmsKeyID,
		region:      region,
	}
}

// Execute locates the latest .ndjson object in the bucket and submits an
// import job for it. The success flag is set true only when the submission
// command ran cleanly and exited zero; it is the only externally observable
// outcome of the call.
func (t *CLIImportTrigger) Execute(ctx context.Context, descriptor string) error {
	t.logger.Debug("import trigger invoked", "descriptor", descriptor)

	key, err := t.LatestObjectKey(ctx)
	if err != nil {
		t.succeeded = false
		return err
	}

	job := domain.ImportJob{
		InputURI:    s3URI(t.bucket, key),
		OutputURI:   s3URI(t.bucket, "output"),
		DatastoreID: t.datastoreID,
		RoleARN:     t.roleARN,
		KmsKeyID:    t.kmsKeyID,
		Region:      t.region,
	}

	t.logger.Info("starting FHIR import job", "input", job.InputURI)

	out, err := t.runner.Run(ctx, importCommand(job))
	if err != nil {
		t.succeeded = false
		return domain.ErrTrigger(err, "start import job for %s", job.InputURI)
	}

	t.logger.Info("import job submitted", "output", out)
	t.succeeded = true
	return nil
}

// Succeeded reports whether the last Execute call submitted its job cleanly.
func (t *CLIImportTrigger) Succeeded() bool { return t.succeeded }

// LatestObjectKey returns the key of the most recently modified .ndjson
// object in the bucket, paging through the full listing. Ties pick the last
// maximal element in list order.
func (t *CLIImportTrigger) LatestObjectKey(ctx context.Context) (string, error) {
	var latestKey string
	var latestModified int64 = -1

	var continuationToken *string
	for {
		out, err := t.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(t.bucket),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return "", domain.ErrTrigger(err, "list bucket %s", t.bucket)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ndjsonSuffix) {
				continue
			}
			if obj.LastModified == nil {
				continue
			}
			if mod := obj.LastModified.UnixNano(); mod >= latestModified {
				latestModified = mod
				latestKey = *obj.Key
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	if latestKey == "" {
		return "", domain.ErrTrigger(nil, "no %s objects found in bucket %s", ndjsonSuffix, t.bucket)
	}
	return latestKey, nil
}

// importCommand renders the fixed-field-order AWS CLI invocation that starts
// the import job.
func importCommand(job domain.ImportJob) string {
	return fmt.Sprintf(
		"aws healthlake start-fhir-import-job "+
			"--input-data-config S3Uri=%s "+
			"--datastore-id %s "+
			"--data-access-role-arn \"%s\" "+
			"--job-output-data-config '{\"S3Configuration\": {\"S3Uri\":\"%s\",\"KmsKeyId\":\"%s\"}}' "+
			"--region %s",
		job.InputURI,
		job.DatastoreID,
		job.RoleARN,
		job.OutputURI,
		job.KmsKeyID,
		job.Region,
	)
}

func s3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
