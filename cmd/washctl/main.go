// Command washctl drives the washdesk REST API from the shell: it builds draft
// documents from CSV files and edits ledger rows.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"washdesk/infrastructure/apiclient"
	"washdesk/infrastructure/config"
)

var (
	configPath string
	apiURL     string
	operatorID int64
)

var rootCmd = &cobra.Command{
	Use:           "washctl",
	Short:         "Command line client for the washdesk API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path("washdesk.yaml"), "config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().Int64Var(&operatorID, "operator", 0, "operator id sent with every request")

	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(papersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newClient builds an API client from the config file and the persistent flags.
func newClient() (*apiclient.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	base := cfg.API.BaseURL
	if apiURL != "" {
		base = apiURL
	}
	op := cfg.Desk.DefaultOperatorID
	if operatorID > 0 {
		op = operatorID
	}
	return apiclient.New(base,
		apiclient.WithOperator(op),
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout()}),
	), nil
}
