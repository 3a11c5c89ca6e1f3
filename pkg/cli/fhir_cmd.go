package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"hios/internal/app"
)

func newFhirCmd(profile, envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fhir",
		Short: "Direct resource CRUD against the HealthLake REST API",
	}

	cmd.AddCommand(
		newFhirVerbCmd(profile, envFile, "get", http.MethodGet, "Read a resource", true, false),
		newFhirVerbCmd(profile, envFile, "create", http.MethodPost, "Create a resource", false, true),
		newFhirVerbCmd(profile, envFile, "update", http.MethodPut, "Update a resource", true, true),
		newFhirVerbCmd(profile, envFile, "delete", http.MethodDelete, "Delete a resource", true, false),
	)

	return cmd
}

func newFhirVerbCmd(profile, envFile *string, name, method, short string, wantsID, wantsBody bool) *cobra.Command {
	var dataFile string

	use := name + " <resourceType>"
	if wantsID {
		use += " <id>"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*profile, *envFile)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, Logger: logger})
			if err != nil {
				return err
			}
			if a.Rest == nil {
				return fmt.Errorf("REST client is not configured: set HEALTHLAKE_ENDPOINT and credentials")
			}

			resourceType := args[0]
			resourceID := ""
			if len(args) > 1 {
				resourceID = args[1]
			}
			if wantsID && resourceID == "" && method != http.MethodGet {
				return fmt.Errorf("a resource id is required for %s", name)
			}

			payload := ""
			if wantsBody {
				payload, err = readPayload(dataFile)
				if err != nil {
					return err
				}
			}

			body, err := a.Rest.SendRequest(cmd.Context(), method, resourceType, resourceID, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), body)
			return nil
		},
	}

	if wantsBody {
		cmd.Flags().StringVarP(&dataFile, "data", "d", "-", "Payload file, or - for stdin")
	}
	return cmd
}

func readPayload(dataFile string) (string, error) {
	if dataFile == "" || dataFile == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read payload from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(dataFile) //nolint:gosec // path is caller-controlled
	if err != nil {
		return "", fmt.Errorf("read payload file: %w", err)
	}
	return string(data), nil
}
