package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"creditflow/db"
	"creditflow/dispute"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "disputectl",
		Short:         "Operations CLI for the dispute compliance engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTickCmd(), newStatsCmd(), newClassifyCmd())
	return root
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, os.Getenv("DATABASE_URL"))
}

func loadWindows() (dispute.Windows, error) {
	if path := os.Getenv("DEADLINE_WINDOWS_FILE"); path != "" {
		return dispute.LoadWindows(path)
	}
	return dispute.DefaultWindows(), nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
