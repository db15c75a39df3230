package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/answertext"
	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/review"
)

var askCmd = &cobra.Command{
	Use:   "ask <deal-id> [question]",
	Short: "Ask a question about a deal",
	Long:  "Asks a free-text question about a deal. Without a question, starts an interactive session that reads one question per line from stdin.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dealID := args[0]
		client := newClient()

		legacy, _ := cmd.Flags().GetBool("legacy")
		color, _ := cmd.Flags().GetBool("color")
		opts := answertext.TextOptions{Color: color}

		if legacy {
			if len(args) < 2 {
				return eris.New("ask: --legacy needs a question")
			}
			resp, err := client.AskLegacy(ctx, dealID, args[1])
			if err != nil {
				return eris.Wrap(err, "ask")
			}
			return printLegacyAnswer(os.Stdout, resp, opts)
		}

		chat := review.NewChatSession(client, dealID)
		if len(args) == 2 {
			msg, err := chat.Ask(ctx, args[1])
			if err != nil {
				return eris.Wrap(err, "ask")
			}
			return printAnswer(os.Stdout, msg, opts)
		}

		return runChat(ctx, chat, os.Stdin, os.Stdout, opts)
	},
}

// runChat answers questions from in until EOF, "exit" or "quit".
func runChat(ctx context.Context, chat *review.ChatSession, in io.Reader, out io.Writer, opts answertext.TextOptions) error {
	if cat, err := review.DefaultCatalog(); err == nil {
		_, _ = fmt.Fprintln(out, "Ask questions about this credit agreement. Try:")
		for _, q := range cat.ChatExamples {
			_, _ = fmt.Fprintf(out, "  - %s\n", q)
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}

		msg, err := chat.Ask(ctx, line)
		if err != nil {
			zap.L().Warn("question failed", zap.Error(err))
			_, _ = fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if err := printAnswer(out, msg, opts); err != nil {
			return err
		}
	}
	return eris.Wrap(scanner.Err(), "ask: read question")
}

func printAnswer(out io.Writer, msg review.Message, opts answertext.TextOptions) error {
	if err := answertext.RenderText(out, msg.Blocks, opts); err != nil {
		return eris.Wrap(err, "ask: render answer")
	}
	printCitations(out, msg.Citations)
	if msg.DataSource != "" {
		_, _ = fmt.Fprintf(out, "\nSource: %s\n", msg.DataSource)
	}
	return nil
}

func printCitations(out io.Writer, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nCitations:")
	for _, c := range citations {
		line := fmt.Sprintf("  [p.%d]", c.Page)
		if c.Section != "" {
			line += " " + c.Section
		}
		if c.Text != "" {
			line += "  " + truncate(c.Text, 100)
		}
		_, _ = fmt.Fprintln(out, line)
	}
}

func printLegacyAnswer(out io.Writer, resp *model.QAResponse, opts answertext.TextOptions) error {
	if err := answertext.Format(out, resp.Answer, opts); err != nil {
		return eris.Wrap(err, "ask: render answer")
	}
	if len(resp.Evidence) == 0 {
		return nil
	}
	_, _ = fmt.Fprintln(out, "\nEvidence:")
	for _, e := range resp.Evidence {
		_, _ = fmt.Fprintf(out, "  %s: %v\n", e.Primitive, e.Value)
	}
	return nil
}

func init() {
	askCmd.Flags().Bool("legacy", false, "use the legacy primitive-evidence Q&A endpoint")
	askCmd.Flags().Bool("color", false, "highlight bold text and headings")
	rootCmd.AddCommand(askCmd)
}
