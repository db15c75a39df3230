package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/display"
	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/review"
)

var statusCmd = &cobra.Command{
	Use:   "status [deal-id]",
	Short: "Show extraction status for a deal or all deals",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		all, _ := cmd.Flags().GetBool("all")
		watch, _ := cmd.Flags().GetBool("watch")

		client := newClient()

		if all {
			svc, err := newService(client)
			if err != nil {
				return err
			}
			var policy *poll.Policy
			if watch {
				p := statusPolicy(poll.Conservative(), cfg.Status.ListIntervalMs)
				policy = &p
			}
			return eris.Wrap(showAll(ctx, svc, os.Stdout, policy), "status")
		}

		if len(args) == 0 {
			return eris.New("status: a deal id is required unless --all is set")
		}

		policy := poll.OneShot()
		if watch {
			policy = poll.Aggressive()
		}
		policy = statusPolicy(policy, cfg.Status.PollIntervalMs)

		final, err := poll.Watch(ctx, args[0], client.GetStatus, policy, func(u poll.Update) {
			if u.Err != nil {
				return
			}
			if watch {
				formatStatusLine(os.Stdout, u.Status)
			}
		})
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if !watch {
			formatStatusDetail(os.Stdout, final)
		}
		return nil
	},
}

// showAll prints every deal's status from one batched request. With a
// policy, rows still extracting are followed until they finish and the
// table is printed again.
func showAll(ctx context.Context, svc *review.Service, out io.Writer, policy *poll.Policy) error {
	rows, err := svc.ListDeals(ctx, "")
	if err != nil {
		return err
	}
	statuses := make([]model.DealStatus, len(rows))
	for i, r := range rows {
		statuses[i] = r.Status
	}
	formatStatuses(out, statuses)

	if policy == nil || allTerminal(statuses) {
		return nil
	}

	_, _ = fmt.Fprintln(out)
	statuses = svc.WatchDeals(ctx, rows, *policy, func(st model.DealStatus) {
		formatStatusLine(out, st)
	})
	_, _ = fmt.Fprintln(out)
	formatStatuses(out, statuses)
	return nil
}

func allTerminal(statuses []model.DealStatus) bool {
	for _, st := range statuses {
		if !st.IsTerminal() {
			return false
		}
	}
	return true
}

func init() {
	statusCmd.Flags().Bool("all", false, "show the status of every deal (one batched request)")
	statusCmd.Flags().Bool("watch", false, "poll until extraction completes or fails (with --all, every deal still extracting)")
	rootCmd.AddCommand(statusCmd)
}

func formatStatusLine(out io.Writer, st model.DealStatus) {
	line := fmt.Sprintf("%s  %-10s %3d%%", st.DealID, display.StatusBadge(st.Status), st.ClampedProgress())
	if st.CurrentStep != "" {
		line += "  " + st.CurrentStep
	}
	if st.HasError() && st.ErrorText() != "" {
		line += "  error: " + st.ErrorText()
	}
	_, _ = fmt.Fprintln(out, line)
}

// formatStatusDetail writes the status with its step checklist.
func formatStatusDetail(out io.Writer, st model.DealStatus) {
	formatStatusLine(out, st)
	if st.IsTerminal() && !st.HasError() {
		return
	}
	for _, step := range poll.Steps(st) {
		mark := " "
		switch step.State {
		case poll.StepComplete:
			mark = "x"
		case poll.StepCurrent:
			mark = ">"
		}
		_, _ = fmt.Fprintf(out, "  [%s] %s - %s\n", mark, step.Label, step.Description)
	}
}

func formatStatuses(out io.Writer, statuses []model.DealStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DEAL\tSTATUS\tPROGRESS\tSTEP")
	_, _ = fmt.Fprintln(w, "----\t------\t--------\t----")
	for _, st := range statuses {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\n",
			st.DealID,
			display.StatusBadge(st.Status),
			st.ClampedProgress(),
			st.CurrentStep,
		)
	}
	_ = w.Flush()
}
