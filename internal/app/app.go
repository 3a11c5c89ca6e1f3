// Package app provides application-level wiring for the orchestration
// service: it builds AWS clients from config and assembles the pipeline
// components that the CLI drives.
package app

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsathena "github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"hios/internal/athena"
	"hios/internal/config"
	"hios/internal/healthlake"
	"hios/internal/invoker"
	"hios/internal/storage"
)

// Deps holds the external dependencies that main() must provide: config and
// the process-level logger.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App holds the fully-wired pipeline components. Query and Rest are nil when
// their configuration is absent.
type App struct {
	S3           *s3.Client
	ContentStore *storage.S3ContentStore
	Trigger      *healthlake.CLIImportTrigger
	Runner       *invoker.ShellRunner
	Rest         *healthlake.RestClient // nil when no endpoint configured
	Query        *athena.QueryService   // nil when Athena is not configured
}

// New wires all clients and components from the provided deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	var credsProvider aws.CredentialsProvider
	if cfg.HasCredentials() {
		credsProvider = credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)
	}

	s3Client := s3.New(s3.Options{
		Region:      cfg.Region,
		Credentials: credsProvider,
	})

	contentStore, err := storage.NewS3ContentStore(ctx, s3Client, cfg.Bucket, logger, nil)
	if err != nil {
		return nil, err
	}

	runner := invoker.NewShellRunner(logger,
		invoker.WithRetry(cfg.RetryAttempts, cfg.RetryBackoff))

	trigger := healthlake.NewCLIImportTrigger(
		s3Client, runner, logger,
		cfg.Region, cfg.DatastoreID, cfg.Bucket, cfg.KmsKeyID, cfg.RoleARN,
	)

	app := &App{
		S3:           s3Client,
		ContentStore: contentStore,
		Trigger:      trigger,
		Runner:       runner,
	}

	if cfg.Endpoint != "" && cfg.HasCredentials() {
		signer := &healthlake.Signer{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Region:          cfg.Region,
			Service:         "healthlake",
		}
		app.Rest = healthlake.NewRestClient(cfg.Endpoint, cfg.DatastoreID, signer, logger,
			healthlake.WithTransportRetry(cfg.RetryAttempts, cfg.RetryBackoff))
	}

	if cfg.AthenaDatabase != "" && cfg.AthenaOutputLocation != "" {
		athenaClient := awsathena.New(awsathena.Options{
			Region:      cfg.Region,
			Credentials: credsProvider,
		})
		app.Query = athena.NewQueryService(athenaClient, logger)
	}

	return app, nil
}
