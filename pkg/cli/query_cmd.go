package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hios/internal/app"
	"hios/internal/domain"
)

func newQueryCmd(profile, envFile *string) *cobra.Command {
	var (
		database string
		output   string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Submit an Athena query, wait for completion, and print result rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*profile, *envFile)
			if err != nil {
				return err
			}
			if database != "" {
				cfg.AthenaDatabase = database
			}
			if output != "" {
				cfg.AthenaOutputLocation = output
			}

			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}
			if a.Query == nil {
				return fmt.Errorf("Athena is not configured: set ATHENA_DATABASE and ATHENA_OUTPUT_LOCATION")
			}

			sql := strings.Join(args, " ")

			executionID, err := a.Query.Submit(cmd.Context(), sql, cfg.AthenaDatabase, cfg.AthenaOutputLocation)
			if err != nil {
				return err
			}

			waitCtx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
				defer cancel()
			}
			if err := a.Query.AwaitCompletion(waitCtx, executionID, cfg.PollInterval); err != nil {
				return err
			}

			printedHeader := false
			return a.Query.StreamResults(cmd.Context(), executionID, func(row domain.ResultRow) error {
				if !printedHeader && len(row.Columns) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), strings.Join(row.Columns, "\t"))
					printedHeader = true
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(row.Values, "\t"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&database, "database", "", "Athena database (defaults to ATHENA_DATABASE)")
	cmd.Flags().StringVar(&output, "output-location", "", "s3:// URI for query results (defaults to ATHENA_OUTPUT_LOCATION)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall wait deadline (0 waits forever)")
	return cmd
}
