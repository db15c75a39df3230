package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/review"
	"github.com/sells-group/valence-cli/pkg/valence"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <agreement.pdf>",
	Short: "Upload a credit agreement and wait for extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		name, _ := cmd.Flags().GetString("name")
		borrower, _ := cmd.Flags().GetString("borrower")

		req := valence.UploadRequest{
			FileName: filepath.Base(args[0]),
			DealName: name,
			Borrower: borrower,
		}
		// Validate before opening so a bad name fails without touching disk.
		if err := review.ValidateUpload(req); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "upload: open file")
		}
		defer f.Close() //nolint:errcheck
		req.File = f

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		res, err := svc.Upload(ctx, req, func(p review.UploadProgress) {
			printUploadProgress(p)
		})
		if err != nil {
			return eris.Wrap(err, "upload")
		}

		fmt.Fprintf(os.Stdout, "Deal %s is ready: %s\n", res.DealID, res.Route)
		return nil
	},
}

func printUploadProgress(p review.UploadProgress) {
	switch p.State {
	case review.UploadUploading:
		fmt.Fprintln(os.Stderr, "Uploading...")
	case review.UploadExtracting:
		if len(p.Steps) == 0 {
			fmt.Fprintf(os.Stderr, "Uploaded as %s, extraction queued\n", p.DealID)
			return
		}
		fmt.Fprintf(os.Stderr, "%s %3d%%  %s\n", p.Status.Status.Label(), p.Status.ClampedProgress(), currentStepLabel(p.Steps))
	case review.UploadComplete:
		fmt.Fprintln(os.Stderr, "Extraction complete")
	case review.UploadError:
		if p.Err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", p.Err)
		}
	}
}

func currentStepLabel(steps []poll.Step) string {
	for _, s := range steps {
		if s.State == poll.StepCurrent {
			return s.Label
		}
	}
	return ""
}

func init() {
	uploadCmd.Flags().String("name", "", "deal name (required)")
	uploadCmd.Flags().String("borrower", "", "borrower name (required)")
	rootCmd.AddCommand(uploadCmd)
}
