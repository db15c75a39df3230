package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/review"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "List suggested questions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("catalog")
		mfn, _ := cmd.Flags().GetBool("mfn")

		cat, err := review.DefaultCatalog()
		if path != "" {
			cat, err = review.LoadCatalog(path)
		}
		if err != nil {
			return err
		}

		for _, s := range cat.Suggestions(mfn) {
			fmt.Fprintf(os.Stdout, "%-22s %s\n", s.Label, s.Question)
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().Bool("mfn", false, "include MFN questions (for deals with an extracted MFN provision)")
	suggestCmd.Flags().String("catalog", "", "path to a custom question catalog")
	rootCmd.AddCommand(suggestCmd)
}
