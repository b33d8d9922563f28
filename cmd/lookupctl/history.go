package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gurujiofficial51-wq/info1/internal/history"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var user string
	var limit, offset int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored search results, one row per result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				rows, failures, err := history.Load(ctx, st.Searches(), store.SearchFilter{
					PrincipalID: user, Limit: limit, Offset: offset,
				})
				if err != nil {
					return err
				}
				for _, f := range failures {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", f)
				}
				return printJSON(cmd.OutOrStdout(), rows)
			})
		},
	}
	historyCmd.Flags().StringVarP(&user, "user", "u", "", "Only this user's history")
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum records")
	historyCmd.Flags().IntVarP(&offset, "offset", "o", 0, "Records to skip")

	var clearUser string
	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored search history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearUser == "" && !all {
				return errors.New("--user or --all required")
			}
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				n, err := st.Searches().Clear(ctx, clearUser)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d search records\n", n)
				return nil
			})
		},
	}
	clearCmd.Flags().StringVarP(&clearUser, "user", "u", "", "Only this user's history")
	clearCmd.Flags().BoolVar(&all, "all", false, "Clear every user's history")
	historyCmd.AddCommand(clearCmd)

	return historyCmd
}
