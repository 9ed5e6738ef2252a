// Package cli implements the usage-report command-line client. It talks to a
// running report server over HTTP and prints report sections.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var host string

	rootCmd := &cobra.Command{
		Use:           "usage-report",
		Short:         "Usage report CLI",
		Long:          "Command-line client for the usage report API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("USAGE_REPORT_HOST"); v != "" {
					host = v
				}
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "report server base URL")

	client := func() *Client { return NewClient(host) }

	for _, section := range []struct {
		use   string
		short string
		path  string
	}{
		{"overall", "Organization-wide totals", "/v1/report/overall"},
		{"client-types", "Usage by client type", "/v1/report/client-types"},
		{"daily", "Per-day activity trend", "/v1/report/daily"},
		{"daily-client-types", "Per-day per-client-type trend", "/v1/report/daily-client-types"},
		{"credits", "Per-user credit consumption", "/v1/report/credits"},
		{"tiers", "Usage by subscription tier", "/v1/report/tiers"},
		{"engagement", "Per-user engagement categories", "/v1/report/engagement"},
		{"activity", "Per-user activity timeline", "/v1/report/activity"},
	} {
		rootCmd.AddCommand(newSectionCmd(client, section.use, section.short, section.path))
	}

	rootCmd.AddCommand(newTopUsersCmd(client))
	rootCmd.AddCommand(newCustomSectionCmd(client))
	rootCmd.AddCommand(newRefreshCmd(client))

	return rootCmd
}

func newSectionCmd(client func() *Client, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().PrintJSON(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
}

func newTopUsersCmd(client func() *Client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top-users",
		Short: "Top users by message volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := fmt.Sprintf("/v1/report/top-users?limit=%d", limit)
			return client().PrintJSON(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of users to return (1-100)")
	return cmd
}

func newCustomSectionCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "section <name>",
		Short: "Run a custom report section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client().PrintJSON(cmd.Context(), "/v1/report/sections/"+args[0], cmd.OutOrStdout())
		},
	}
}

func newRefreshCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Invalidate the server's report caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().PostJSON(cmd.Context(), "/v1/report/refresh", cmd.OutOrStdout())
		},
	}
}
