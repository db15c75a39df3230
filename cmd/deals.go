package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/display"
	"github.com/sells-group/valence-cli/internal/review"
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Browse and manage deals",
	Long:  "Commands for listing, viewing, and deleting uploaded credit agreements.",
}

// -- deals list --

var dealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deals with their extraction status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		search, _ := cmd.Flags().GetString("search")
		asJSON, _ := cmd.Flags().GetBool("json")

		rows, err := svc.ListDeals(ctx, search)
		if err != nil {
			return eris.Wrap(err, "deals list")
		}

		if asJSON {
			return writeJSON(os.Stdout, rows)
		}
		if len(rows) == 0 {
			if search != "" {
				fmt.Fprintf(os.Stderr, "No deals match %q.\n", search)
			} else {
				fmt.Fprintln(os.Stderr, "No deals yet. Upload one with `valence upload`.")
			}
			return nil
		}

		formatDealsList(os.Stdout, rows)
		return nil
	},
}

// -- deals show --

var dealsShowCmd = &cobra.Command{
	Use:   "show <deal-id>",
	Short: "Show a deal and its extraction status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		deal, err := svc.Deal(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "deals show")
		}
		st, err := svc.Status(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "deals show")
		}

		return writeJSON(os.Stdout, review.DealRow{Deal: *deal, Status: st})
	},
}

// -- deals delete --

var dealsDeleteCmd = &cobra.Command{
	Use:   "delete <deal-id>",
	Short: "Delete a deal whose extraction has finished",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		if err := svc.DeleteDeal(ctx, args[0]); err != nil {
			return eris.Wrap(err, "deals delete")
		}
		fmt.Fprintf(os.Stdout, "Deleted deal %s\n", args[0])
		return nil
	},
}

func init() {
	dealsListCmd.Flags().String("search", "", "filter by deal name or borrower")
	dealsListCmd.Flags().Bool("json", false, "print rows as JSON")

	dealsCmd.AddCommand(dealsListCmd)
	dealsCmd.AddCommand(dealsShowCmd)
	dealsCmd.AddCommand(dealsDeleteCmd)
	rootCmd.AddCommand(dealsCmd)
}

// formatDealsList writes a tabular list of deals to w.
func formatDealsList(out io.Writer, rows []review.DealRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tBORROWER\tSTATUS\tUPLOADED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t------\t--------")

	for _, r := range rows {
		uploaded := ""
		if t, ok := r.Deal.Uploaded(); ok {
			uploaded = t.Format("2006-01-02")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Deal.ID,
			truncate(r.Deal.DisplayName(), 40),
			truncate(r.Deal.Borrower, 30),
			display.StatusBadge(r.Status.Status),
			uploaded,
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
