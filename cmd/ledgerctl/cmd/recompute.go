package cmd

import (
	"fmt"

	"github.com/Dan9191/ledger-service/internal/balance"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute-balances",
	Short: "Recompute every stored account balance from the ledger",
	Long: `Recompute the balance of every account from its debit and credit sums
and store the result. Running it twice changes nothing the second time.

Example:
  ledgerctl recompute-balances`,
	Run: runRecompute,
}

func runRecompute(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	results, err := a.Service.RecalculateAllBalances(cmd.Context(), func(i, total int, r balance.Recalculation) {
		old := "(none)"
		if r.Old.Valid {
			old = r.Old.Decimal.StringFixed(2)
		}
		fmt.Printf("[%d/%d] %s (%d): Balance updated from %s to %s\n", i, total, r.Name, r.AccountID, old, r.New.StringFixed(2))
	})
	exitOnError(err, "failed to recompute balances")

	changed := 0
	for _, r := range results {
		if r.Changed() {
			changed++
		}
	}
	fmt.Printf("\nRecomputed %d accounts, %d changed\n", len(results), changed)
}
