package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gurujiofficial51-wq/info1/internal/model"
	"github.com/gurujiofficial51-wq/info1/internal/store"
)

// userDetail is the users get view.
type userDetail struct {
	*model.Principal
	ReferralCredits int64                  `json:"referralCredits"`
	Referrals       []*model.ReferralGrant `json:"referrals"`
	SearchRecords   int64                  `json:"searchRecords"`
}

func newUsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				ps, err := st.Principals().List(ctx, limit, offset)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ps)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum rows")
	listCmd.Flags().IntVarP(&offset, "offset", "o", 0, "Rows to skip")
	usersCmd.AddCommand(listCmd)

	var searchLimit int
	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Find users by id, username or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				ps, err := st.Principals().Search(ctx, args[0], searchLimit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ps)
			})
		},
	}
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 20, "Maximum rows")
	usersCmd.AddCommand(searchCmd)

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show one user with referral and search totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				d, err := loadUser(ctx, st, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), d)
			})
		},
	}
	usersCmd.AddCommand(getCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a user and their search history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				if err := st.Principals().Delete(ctx, args[0]); err != nil {
					return userErr(args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
				return nil
			})
		},
	}
	usersCmd.AddCommand(deleteCmd)

	return usersCmd
}

func loadUser(ctx context.Context, st store.Store, id string) (*userDetail, error) {
	p, err := st.Principals().Get(ctx, id)
	if err != nil {
		return nil, userErr(id, err)
	}
	earned, err := st.Referrals().EarnedBy(ctx, id)
	if err != nil {
		return nil, err
	}
	grants, err := st.Referrals().ListBy(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := st.Searches().Count(ctx, id)
	if err != nil {
		return nil, err
	}
	return &userDetail{Principal: p, ReferralCredits: earned, Referrals: grants, SearchRecords: n}, nil
}

func newBanCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "ban USER_ID",
		Short: "Ban a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				var r *string
				if reason != "" {
					r = &reason
				}
				if err := st.Principals().SetBan(ctx, args[0], r); err != nil {
					return userErr(args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "banned user %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason shown to the user")
	return cmd
}

func newUnbanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban USER_ID",
		Short: "Lift a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st store.Store) error {
				if err := st.Principals().Unban(ctx, args[0]); err != nil {
					return userErr(args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "unbanned user %s\n", args[0])
				return nil
			})
		},
	}
}
