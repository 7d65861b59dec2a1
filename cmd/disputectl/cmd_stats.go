package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"creditflow/analytics"
	"creditflow/dispute"
)

func newStatsCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print bureau performance and SLA statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := dispute.NewPGRepository(pool)
			disputes, err := repo.List(ctx, dispute.Filter{OwnerID: owner})
			if err != nil {
				return err
			}

			now := time.Now()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "disputes: %d\n", len(disputes))
			fmt.Fprintf(out, "avg resolution: %.1f days\n\n", analytics.AverageResolutionDays(disputes))

			fmt.Fprintln(out, "bureau        resolved  favorable  success")
			for _, st := range analytics.BureauStats(disputes) {
				fmt.Fprintf(out, "%-12s  %8d  %9d  %6.0f%%\n",
					st.Bureau, st.Resolved, st.Favorable, st.SuccessRate*100)
			}

			fmt.Fprintln(out, "\nwindow  filed  resolved  overdue")
			for _, w := range analytics.SLAWindows(disputes, now) {
				fmt.Fprintf(out, "%3dd    %5d  %8d  %7d\n", w.Days, w.Filed, w.Resolved, w.Overdue)
			}

			fmt.Fprintln(out, "\nweek of     filed  due")
			for _, b := range analytics.WeeklyVolume(disputes, now, 8) {
				fmt.Fprintf(out, "%s  %5d  %3d\n", b.Start.Format("2006-01-02"), b.Filed, b.Due)
			}

			fmt.Fprintln(out, "\nmonth    filed  due")
			for _, b := range analytics.MonthlyVolume(disputes, now, 6) {
				fmt.Fprintf(out, "%s  %5d  %3d\n", b.Start.Format("2006-01"), b.Filed, b.Due)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "limit to one owner's disputes")
	return cmd
}
