package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hios/internal/app"
	"hios/internal/domain"
	"hios/internal/orchestrator"
)

func newIngestCmd(profile, envFile *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest [bundle.json ...]",
		Short: "Store bundles in S3 as NDJSON and start a HealthLake import per bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*profile, *envFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			bundles, err := collectBundles(args, dir)
			if err != nil {
				return err
			}
			if len(bundles) == 0 {
				return fmt.Errorf("no bundle files given: pass file arguments or --path")
			}

			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}

			orch := orchestrator.New(logger).
				WithContentStore(a.ContentStore).
				WithImportTrigger(a.Trigger).
				WithBundles(func() []domain.BundleSource { return bundles })

			if err := orch.Orchestrate(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d bundle(s); last key: %s\n",
				len(bundles), a.ContentStore.LastUploadedKey())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "path", "", "Directory tree to walk for .json bundles")
	return cmd
}

func newStoreCmd(profile, envFile *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "store [bundle.json ...]",
		Short: "Convert bundles to NDJSON and upload them to S3 without triggering an import",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*profile, *envFile)
			if err != nil {
				return err
			}
			if cfg.Region == "" || cfg.Bucket == "" {
				return fmt.Errorf("AWS_REGION and HIOS_BUCKET must be set")
			}

			bundles, err := collectBundles(args, dir)
			if err != nil {
				return err
			}
			if len(bundles) == 0 {
				return fmt.Errorf("no bundle files given: pass file arguments or --path")
			}

			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}

			for _, bundle := range bundles {
				key, err := a.ContentStore.Store(cmd.Context(), bundle)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s\n", cfg.Bucket, key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "path", "", "Directory tree to walk for .json bundles")
	return cmd
}

// collectBundles turns explicit file arguments plus an optional directory walk
// into bundle sources. Directory walks pick up every .json file, recursively.
func collectBundles(args []string, dir string) ([]domain.BundleSource, error) {
	var bundles []domain.BundleSource
	for _, arg := range args {
		bundles = append(bundles, domain.FileBundle{Path: arg})
	}

	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".json") {
				bundles = append(bundles, domain.FileBundle{Path: path})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}

	return bundles, nil
}
