package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"creditflow/response"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify a bureau response from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			text := string(raw)

			out := cmd.OutOrStdout()
			a := response.Analyze(text)
			fmt.Fprintf(out, "outcome: %s (confidence %d%%)\n", a.Outcome, a.Confidence)
			fmt.Fprintf(out, "recommended status: %s\n", a.RecommendedStatus)
			if len(a.Signals) > 0 {
				fmt.Fprintf(out, "signals: %v\n", a.Signals)
			}
			for _, step := range a.NextSteps {
				fmt.Fprintf(out, "  - %s\n", step)
			}

			idx := response.ExtractIndex(text)
			if idx.Bureau != "" {
				fmt.Fprintf(out, "bureau: %s\n", idx.Bureau)
			}
			for _, item := range response.ExtractItems(text) {
				fmt.Fprintf(out, "account %s: %s\n", item.AccountRef, item.Outcome)
			}
			return nil
		},
	}
	return cmd
}
