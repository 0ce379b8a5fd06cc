package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/visibility-cli/internal/dispatch"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

var subscriptionsCmd = &cobra.Command{
	Use:     "subscriptions",
	Aliases: []string{"subs"},
	Short:   "Manage monitoring subscriptions",
	Long:    "Seed and inspect subscriptions. Billing owns subscription state in production; these commands mirror it for local use.",
}

// -- subscriptions add --

var subscriptionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a subscription for an account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		email, _ := cmd.Flags().GetString("email")
		rawDomain, _ := cmd.Flags().GetString("domain")
		competitors, _ := cmd.Flags().GetStringSlice("competitor")
		status, _ := cmd.Flags().GetString("status")

		domain, err := dispatch.NormalizeDomain(rawDomain)
		if err != nil {
			return err
		}
		email, err = dispatch.NormalizeEmail(email)
		if err != nil {
			return err
		}
		subStatus, err := parseSubscriptionStatus(status)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		acct, err := st.GetOrCreateAccount(ctx, email)
		if err != nil {
			return eris.Wrap(err, "subscriptions add: account")
		}

		sub, err := st.CreateSubscription(ctx, model.Subscription{
			AccountID:   acct.ID,
			Domain:      domain,
			Status:      subStatus,
			Competitors: competitors,
		})
		if err != nil {
			return eris.Wrap(err, "subscriptions add")
		}

		fmt.Fprintf(os.Stdout, "subscription %s created for %s (account %s)\n", sub.ID, sub.Domain, acct.ID)
		return nil
	},
}

// -- subscriptions list --

var subscriptionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscriptions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		accountID, _ := cmd.Flags().GetString("account")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.SubscriptionFilter{AccountID: accountID, Limit: limit}
		if status != "" {
			s, err := parseSubscriptionStatus(status)
			if err != nil {
				return err
			}
			filter.Status = s
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		subs, err := st.ListSubscriptions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "subscriptions list")
		}
		if len(subs) == 0 {
			fmt.Fprintln(os.Stderr, "No subscriptions found.")
			return nil
		}

		formatSubscriptions(os.Stdout, subs)
		return nil
	},
}

func parseSubscriptionStatus(s string) (model.SubscriptionStatus, error) {
	switch st := model.SubscriptionStatus(s); st {
	case model.SubscriptionActive, model.SubscriptionPastDue, model.SubscriptionCancelled:
		return st, nil
	default:
		return "", eris.Errorf("unknown subscription status %q (active, past_due, cancelled)", s)
	}
}

func init() {
	subscriptionsAddCmd.Flags().String("email", "", "account email (required)")
	subscriptionsAddCmd.Flags().String("domain", "", "domain to monitor (required)")
	subscriptionsAddCmd.Flags().StringSlice("competitor", nil, "known competitor name (repeatable)")
	subscriptionsAddCmd.Flags().String("status", string(model.SubscriptionActive), "subscription status")
	_ = subscriptionsAddCmd.MarkFlagRequired("email")
	_ = subscriptionsAddCmd.MarkFlagRequired("domain")

	subscriptionsListCmd.Flags().String("status", "", "filter by status")
	subscriptionsListCmd.Flags().String("account", "", "filter by account ID")
	subscriptionsListCmd.Flags().Int("limit", 100, "max number of subscriptions to display")

	subscriptionsCmd.AddCommand(subscriptionsAddCmd)
	subscriptionsCmd.AddCommand(subscriptionsListCmd)
	rootCmd.AddCommand(subscriptionsCmd)
}
