package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gurujiofficial51-wq/info1/internal/ledger"
	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

func newCreditsCmd() *cobra.Command {
	creditsCmd := &cobra.Command{Use: "credits", Short: "Adjust user balances"}

	creditsCmd.AddCommand(&cobra.Command{
		Use:   "add USER_ID AMOUNT",
		Short: "Add credits to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				bal, err := ledger.NewService(st, nopLog()).Credit(ctx, args[0], amount)
				if err != nil {
					return userErr(args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %s balance: %d\n", args[0], bal)
				return nil
			})
		},
	})

	creditsCmd.AddCommand(&cobra.Command{
		Use:   "set USER_ID AMOUNT",
		Short: "Set a user's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				if err := ledger.NewService(st, nopLog()).SetBalance(ctx, args[0], amount); err != nil {
					return userErr(args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %s balance: %d\n", args[0], amount)
				return nil
			})
		},
	})

	return creditsCmd
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount must be an integer: %q", s)
	}
	return n, nil
}

// userErr makes a missing user readable on the command line.
func userErr(id string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("user %s not found", id)
	}
	return err
}
