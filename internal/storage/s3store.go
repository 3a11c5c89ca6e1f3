// Package storage persists converted FHIR bundles to S3 as NDJSON objects.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"hios/internal/domain"
)

// Compile-time check: S3ContentStore implements the content store port.
var _ domain.ContentStore = (*S3ContentStore)(nil)

// S3API is the subset of the S3 client used by the content store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3ContentStore converts FHIR bundles into NDJSON and uploads them to a
// single bucket. Keys embed a fresh random id per upload, so re-storing the
// same source never overwrites a prior object.
type S3ContentStore struct {
	client S3API
	bucket string
	logger *slog.Logger

	lastUploadedKey string
}

// NewS3ContentStore creates a store writing to the given bucket. When
// ifMissing is non-nil it is invoked once at construction if the bucket is
// not reachable, giving callers a chance to create it.
func NewS3ContentStore(ctx context.Context, client S3API, bucket string, logger *slog.Logger, ifMissing func(context.Context, S3API) error) (*S3ContentStore, error) {
	st := &S3ContentStore{client: client, bucket: bucket, logger: logger}

	if ifMissing != nil {
		_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
		if err != nil {
			logger.Info("bucket not reachable, running bootstrap hook", "bucket", bucket)
			if err := ifMissing(ctx, client); err != nil {
				return nil, domain.ErrStorage(err, "bootstrap bucket %s", bucket)
			}
		}
	}

	return st, nil
}

// Store converts the bundle to NDJSON, writes it to a scratch file, and
// uploads it under a fresh `<uuid>_<basename>.ndjson` key. The key is
// recorded as last-uploaded for introspection.
func (s *S3ContentStore) Store(ctx context.Context, bundle domain.BundleSource) (string, error) {
	s.logger.Info("storing bundle", "bundle", bundle.Name())

	ndjson, err := s.ConvertToNDJSON(bundle)
	if err != nil {
		return "", domain.ErrStorage(err, "convert bundle %s", bundle.Name())
	}

	scratch, err := writeScratchFile(ndjson)
	if err != nil {
		return "", domain.ErrStorage(err, "write scratch file for %s", bundle.Name())
	}
	defer os.Remove(scratch) //nolint:errcheck

	key, err := s.upload(ctx, scratch, baseName(bundle.Name()))
	if err != nil {
		return "", domain.ErrStorage(err, "upload bundle %s", bundle.Name())
	}

	s.lastUploadedKey = key
	s.logger.Info("uploaded bundle", "bucket", s.bucket, "key", key)
	return key, nil
}

// ConvertToNDJSON extracts every entry[].resource from the bundle and
// serializes each as one newline-terminated JSON line. Entries without a
// resource are skipped. A bundle without an entry array yields an empty
// stream and a warning rather than an error.
func (s *S3ContentStore) ConvertToNDJSON(bundle domain.BundleSource) ([]byte, error) {
	r, err := bundle.Open()
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer r.Close() //nolint:errcheck

	// Only malformed JSON is a hard error. A valid document of the wrong
	// shape (non-object root, missing or non-array entry) emits nothing.
	var doc json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}

	var root map[string]json.RawMessage
	var entries []struct {
		Resource json.RawMessage `json:"resource"`
	}
	if json.Unmarshal(doc, &root) != nil ||
		len(root["entry"]) == 0 ||
		json.Unmarshal(root["entry"], &entries) != nil {
		s.logger.Warn("bundle is not a FHIR Bundle or has no entry array, emitting no records", "bundle", bundle.Name())
		return nil, nil
	}

	var buf bytes.Buffer
	for _, entry := range entries {
		if len(entry.Resource) == 0 {
			continue
		}
		compact := bytes.Buffer{}
		if err := json.Compact(&compact, entry.Resource); err != nil {
			return nil, fmt.Errorf("serialize resource: %w", err)
		}
		buf.Write(compact.Bytes())
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Exists probes the bucket for the given key. A missing object is false; any
// other failure is raised, never silently mapped to false.
func (s *S3ContentStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, domain.ErrStorage(err, "head object s3://%s/%s", bucket, key)
	}
	return true, nil
}

// LastUploadedKey returns the key of the most recent successful Store call.
func (s *S3ContentStore) LastUploadedKey() string { return s.lastUploadedKey }

// Bucket returns the configured bucket name.
func (s *S3ContentStore) Bucket() string { return s.bucket }

func (s *S3ContentStore) upload(ctx context.Context, scratchPath, base string) (string, error) {
	f, err := os.Open(scratchPath) //nolint:gosec // scratch path is locally generated
	if err != nil {
		return "", fmt.Errorf("open scratch file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	key := uuid.NewString() + "_" + base + ".ndjson"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("put object s3://%s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}

func writeScratchFile(content []byte) (string, error) {
	f, err := os.CreateTemp("", uuid.NewString()+"-*.ndjson")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, bytes.NewReader(content)); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// baseName keeps the source file's own extension; the stored key is
// `<uuid>_<base>.ndjson` (e.g. `<uuid>_patient.json.ndjson`).
func baseName(name string) string {
	return filepath.Base(name)
}
