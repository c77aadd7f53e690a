package cmd

import (
	"fmt"

	"github.com/Dan9191/ledger-service/internal/banksync"
	"github.com/spf13/cobra"
)

var connectionID int64

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync bank feed connections into the ledger",
	Long: `Fetch new, changed and removed transactions from the bank feed.

Without --connection every active connection is synced. A connection
that fails is marked as errored and the sweep moves on.

Example:
  ledgerctl sync
  ledgerctl sync --connection 4`,
	Run: runSync,
}

var retryCmd = &cobra.Command{
	Use:   "retry-errors",
	Short: "Retry every bank feed connection in error state",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		res, err := a.Reconciler.RetryErrored(cmd.Context())
		exitOnError(err, "failed to retry connections")
		printSweep(res)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report-errors",
	Short: "Report bank feed connections in error state to their owners",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		res, err := a.Reconciler.ReportErrored(cmd.Context())
		exitOnError(err, "failed to report errored connections")
		fmt.Printf("Errored connections: %d\n", res.Errored)
		fmt.Printf("Owners affected:     %d\n", res.Owners)
		fmt.Printf("Owners notified:     %d\n", res.Notified)
	},
}

func init() {
	syncCmd.Flags().Int64Var(&connectionID, "connection", 0, "sync only this connection id")
}

func runSync(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	if connectionID > 0 {
		run, err := a.Reconciler.SyncConnection(cmd.Context(), connectionID)
		if run != nil {
			fmt.Printf("Run %s: %s\n", run.ID, run.Status)
			fmt.Printf("Added %d, modified %d, removed %d, skipped %d over %d pages\n",
				run.Added, run.Modified, run.Removed, run.Skipped, run.Pages)
			for _, e := range run.Errors {
				fmt.Printf("  %s\n", e)
			}
		}
		exitOnError(err, "sync failed")
		return
	}

	res, err := a.Reconciler.SyncAllActive(cmd.Context())
	exitOnError(err, "sync sweep failed")
	printSweep(res)
}

func printSweep(res *banksync.SweepResult) {
	fmt.Printf("Connections: %d (%d ok, %d failed)\n", res.Total, res.Succeeded, res.Failed)
	fmt.Printf("Added %d, modified %d, removed %d\n", res.Added, res.Modified, res.Removed)
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e)
	}
}
