package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := newClient().Health(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "health")
		}
		fmt.Fprintf(os.Stdout, "%s: %s\n", cfg.API.BaseURL, status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
