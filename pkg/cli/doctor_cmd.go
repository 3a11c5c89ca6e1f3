package cli

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"hios/internal/app"
)

// doctor verifies the environment, bucket access, and datastore reachability
// before running an ingestion.
func newDoctorCmd(profile, envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify environment variables, S3 access, and the HealthLake datastore",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*profile, *envFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := false

			for _, name := range []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION"} {
				if os.Getenv(name) == "" {
					fmt.Fprintf(out, "FAIL %s is not set\n", name)
					failed = true
				} else {
					fmt.Fprintf(out, "ok   %s is set\n", name)
				}
			}

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "FAIL config: %v\n", err)
				return fmt.Errorf("environment is not ready")
			}

			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}

			if _, err := a.S3.HeadBucket(cmd.Context(), &s3.HeadBucketInput{
				Bucket: aws.String(cfg.Bucket),
			}); err != nil {
				fmt.Fprintf(out, "FAIL bucket %s is not accessible: %v\n", cfg.Bucket, err)
				failed = true
			} else {
				fmt.Fprintf(out, "ok   bucket %s is accessible\n", cfg.Bucket)
			}

			// No native describe call is wired yet; probe the datastore
			// through the same CLI fallback the import trigger uses.
			describe := fmt.Sprintf(
				"aws healthlake describe-fhir-datastore --datastore-id %s --region %s",
				cfg.DatastoreID, cfg.Region)
			if _, err := a.Runner.Run(cmd.Context(), describe); err != nil {
				fmt.Fprintf(out, "FAIL datastore %s is not accessible: %v\n", cfg.DatastoreID, err)
				failed = true
			} else {
				fmt.Fprintf(out, "ok   datastore %s is accessible\n", cfg.DatastoreID)
			}

			if failed {
				return fmt.Errorf("environment is not ready")
			}
			fmt.Fprintln(out, "all checks passed")
			return nil
		},
	}
}
