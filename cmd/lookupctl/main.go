package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gurujiofficial51-wq/info1/internal/config"
	"github.com/gurujiofficial51-wq/info1/internal/factory"
	"github.com/gurujiofficial51-wq/info1/internal/logger"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

// openStore opens the configured store. Tests replace it.
var openStore = func(ctx context.Context) (store.Store, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return factory.NewStore(ctx, cfg, logger.NewWithWriter(os.Stderr, "lookupctl", "warn"))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lookupctl",
		Short:         "Administrative CLI for the lookup bot database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newStatsCmd(),
		newUsersCmd(),
		newCreditsCmd(),
		newBanCmd(),
		newUnbanCmd(),
		newHistoryCmd(),
		newReindexCmd(),
	)
	return root
}

// withStore opens the store for one command and closes it afterwards.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()
	return fn(ctx, st)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nopLog() zerolog.Logger { return zerolog.Nop() }

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registration and credit totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				s, err := st.Principals().Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the seen-result index from stored history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				n, err := st.Searches().RebuildSeenIndex(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "restored %d missing result ids\n", n)
				return nil
			})
		},
	}
}
