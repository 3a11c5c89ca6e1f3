// Package cli implements the hiosctl command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hios/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		profile string
		envFile string
	)

	rootCmd := &cobra.Command{
		Use:           "hiosctl",
		Short:         "Health information orchestration CLI",
		Long:          "Stores FHIR bundles in S3 as NDJSON, ingests them into AWS HealthLake, and queries the results through Athena.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before reading the environment")

	rootCmd.AddCommand(
		newIngestCmd(&profile, &envFile),
		newStoreCmd(&profile, &envFile),
		newDoctorCmd(&profile, &envFile),
		newFhirCmd(&profile, &envFile),
		newQueryCmd(&profile, &envFile),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig resolves configuration with flag > env > profile precedence and
// builds the process logger from it.
func loadConfig(profile, envFile string) (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}

	// Profile values fill whatever the environment left blank.
	if userCfg, err := LoadUserConfig(); err == nil {
		p := userCfg.ActiveProfile(profile)
		if cfg.Region == "" {
			cfg.Region = p.Region
		}
		if cfg.Bucket == "" {
			cfg.Bucket = p.Bucket
		}
		if cfg.DatastoreID == "" {
			cfg.DatastoreID = p.DatastoreID
		}
		if cfg.RoleARN == "" {
			cfg.RoleARN = p.RoleARN
		}
		if cfg.KmsKeyID == "" {
			cfg.KmsKeyID = p.KmsKeyID
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = p.Endpoint
		}
		// The region may have come from the profile, after the env-load
		// default ran.
		if cfg.Endpoint == "" && cfg.Region != "" {
			cfg.Endpoint = fmt.Sprintf("https://healthlake.%s.amazonaws.com", cfg.Region)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hiosctl %s (%s)\n", version, commit)
		},
	}
}
