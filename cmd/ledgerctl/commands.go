// cmd/ledgerctl/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	app "krako-ledger/internal"
	"krako-ledger/internal/domain"
	"krako-ledger/internal/service"
)

// ledgerFactory opens a LedgerService and returns a func that releases it.
type ledgerFactory func(ctx context.Context) (service.LedgerService, func(), error)

// connectLedger builds the full application from the environment.
func connectLedger(ctx context.Context) (service.LedgerService, func(), error) {
	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	return application.LedgerService, func() { _ = application.Shutdown(context.Background()) }, nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd(open ledgerFactory) *cobra.Command {
	var jsonOutput bool

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the KRAKO points ledger",
		Long:          "ledgerctl runs daily claims and balance credits against the ledger database configured through the environment or CONFIG_FILE.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	// withLedger opens the service for a single command run.
	withLedger := func(run func(cmd *cobra.Command, svc service.LedgerService, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			defer closeFn()
			return run(cmd, svc, args)
		}
	}
	printJSON := func(w io.Writer, v interface{}) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	// -------------------------------------------------------------------------
	// claim
	// -------------------------------------------------------------------------
	claimCmd := &cobra.Command{
		Use:   "claim <user-id>",
		Short: "Attempt one daily claim for a user",
		Args:  cobra.ExactArgs(1),
		RunE: withLedger(func(cmd *cobra.Command, svc service.LedgerService, args []string) error {
			outcome := svc.AttemptClaim(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := printJSON(out, outcome); err != nil {
					return err
				}
			} else if outcome.Success {
				fmt.Fprintf(out, "Claimed %s KRAKO, %d claims left today\n", outcome.Amount, outcome.RemainingClaims)
			} else {
				fmt.Fprintf(out, "Claim rejected: %s\n", outcome.Message())
			}
			if !outcome.Success {
				return fmt.Errorf("claim rejected: %s", outcome.Message())
			}
			return nil
		}),
	}

	// -------------------------------------------------------------------------
	// status
	// -------------------------------------------------------------------------
	statusCmd := &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show today's claim progress for a user",
		Args:  cobra.ExactArgs(1),
		RunE: withLedger(func(cmd *cobra.Command, svc service.LedgerService, args []string) error {
			status, err := svc.ClaimStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, status)
			}
			fmt.Fprintf(out, "Date:      %s\n", status.Today)
			fmt.Fprintf(out, "Balance:   %s KRAKO\n", status.Balance)
			fmt.Fprintf(out, "Claims:    %d/%d (%d left)\n", status.ClaimsToday, status.MaxDailyClaims, status.RemainingClaims)
			fmt.Fprintf(out, "Earned:    %s/%s KRAKO\n", status.EarnedToday, status.DailyCap)
			fmt.Fprintf(out, "Lifetime:  %d claims\n", status.TotalClaims)
			return nil
		}),
	}

	// -------------------------------------------------------------------------
	// history
	// -------------------------------------------------------------------------
	var historyLimit, historyOffset int
	historyCmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "List a user's ledger entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withLedger(func(cmd *cobra.Command, svc service.LedgerService, args []string) error {
			entries, total, err := svc.GetTransactionHistory(cmd.Context(), args[0], historyLimit, historyOffset)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, map[string]interface{}{"data": entries, "total_count": total})
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tTYPE\tAMOUNT\tDESCRIPTION")
			for _, entry := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", entry.CreatedAt.UTC().Format("2006-01-02 15:04:05"), entry.Type, entry.Amount, entry.Description)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d of %d entries\n", len(entries), total)
			return nil
		}),
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", service.DefaultHistoryLimit, "Maximum number of entries to list")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Number of newest entries to skip")

	// -------------------------------------------------------------------------
	// credit
	// -------------------------------------------------------------------------
	var creditType, creditDescription string
	creditCmd := &cobra.Command{
		Use:   "credit <user-id> <amount>",
		Short: "Credit a task, referral or bonus reward to a user",
		Args:  cobra.ExactArgs(2),
		RunE: withLedger(func(cmd *cobra.Command, svc service.LedgerService, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			profile, entry, err := svc.CreditBalance(cmd.Context(), args[0], amount, domain.TransactionType(creditType), creditDescription)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, map[string]interface{}{"profile": profile, "transaction": entry})
			}
			fmt.Fprintf(out, "Credited %s KRAKO (%s), balance now %s KRAKO\n", entry.Amount, entry.Type, profile.Balance)
			return nil
		}),
	}
	creditCmd.Flags().StringVar(&creditType, "type", string(domain.TransactionTypeBonus), "Reward type: task, referral or bonus")
	creditCmd.Flags().StringVar(&creditDescription, "description", "", "Ledger entry description")

	root.AddCommand(claimCmd, statusCmd, historyCmd, creditCmd)
	return root
}
