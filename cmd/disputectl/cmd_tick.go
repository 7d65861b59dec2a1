package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"creditflow/dispute"
	"creditflow/escalate"
)

func newTickCmd() *cobra.Command {
	var verbose bool
	var consumerName string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one escalation pass over lapsed disputes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			sched := escalate.NewScheduler(
				dispute.NewPGRepository(pool),
				&escalate.StubBuilder{Consumer: escalate.ConsumerInfo{Name: consumerName}},
				log,
			)
			ids, err := sched.Tick(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "escalated %d dispute(s)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "development logging")
	cmd.Flags().StringVar(&consumerName, "consumer", "", "consumer name for document context")
	return cmd
}
