package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/model"
)

var provenanceCmd = &cobra.Command{
	Use:   "provenance <deal-id> <attribute>",
	Short: "Show the source text behind an extracted attribute",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		prov, err := svc.Provenance(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "provenance")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(os.Stdout, prov)
		}
		formatProvenance(os.Stdout, prov)
		return nil
	},
}

func formatProvenance(out io.Writer, p *model.Provenance) {
	_, _ = fmt.Fprintf(out, "Attribute: %s\n", p.Attribute)
	if page := p.Page(); page > 0 {
		_, _ = fmt.Fprintf(out, "Page:      %d\n", page)
	}
	if sec := p.SectionRef(); sec != "" {
		_, _ = fmt.Fprintf(out, "Section:   %s\n", sec)
	}
	if p.Confidence != "" {
		_, _ = fmt.Fprintf(out, "Confidence: %s\n", p.Confidence)
	}
	if p.SourceText == "" {
		_, _ = fmt.Fprintln(out, "\nNo source text recorded.")
		return
	}
	_, _ = fmt.Fprintf(out, "\n%s\n", p.SourceText)
}

func init() {
	provenanceCmd.Flags().Bool("json", false, "print provenance as JSON")
	rootCmd.AddCommand(provenanceCmd)
}
