package cmd

import (
	"fmt"
	"os"

	"github.com/Dan9191/ledger-service/internal/importer"
	"github.com/spf13/cobra"
)

var (
	importOwner   int64
	importAccount int64
	importFile    string
	importFormat  string
	importHeader  bool
	dateCol       int
	amountCol     int
	descCol       int
	categoryCol   int
	merchantCol   int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a CSV or camt.053 statement into an account",
	Long: `Import statement rows as transactions against the selected account.
Every row is created in review status. A row that fails is reported and
the rest are still imported.

Columns are zero-based; pass -1 to leave an optional column unmapped.

Example:
  ledgerctl import --owner 1 --account 3 --file may.csv --date-col 0 --desc-col 1 --amount-col 2
  ledgerctl import --owner 1 --account 3 --file may.xml --format camt`,
	Run: runImport,
}

func init() {
	f := importCmd.Flags()
	f.Int64Var(&importOwner, "owner", 0, "owner user id (required)")
	f.Int64Var(&importAccount, "account", 0, "account the statement belongs to (required)")
	f.StringVar(&importFile, "file", "", "statement file (required)")
	f.StringVar(&importFormat, "format", "csv", "statement format: csv or camt")
	f.BoolVar(&importHeader, "header", true, "the CSV has a header row")
	f.IntVar(&dateCol, "date-col", 0, "date column")
	f.IntVar(&descCol, "desc-col", 1, "description column")
	f.IntVar(&amountCol, "amount-col", 2, "amount column")
	f.IntVar(&categoryCol, "category-col", -1, "category column")
	f.IntVar(&merchantCol, "merchant-col", -1, "merchant column")

	importCmd.MarkFlagRequired("owner")
	importCmd.MarkFlagRequired("account")
	importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	file, err := os.Open(importFile)
	exitOnError(err, "failed to open statement")
	defer file.Close()

	var summary *importer.Summary
	switch importFormat {
	case "csv":
		summary, err = a.Importer.ImportCSV(cmd.Context(), importOwner, importAccount, file, columnMapping())
	case "camt":
		summary, err = a.Importer.ImportCAMT(cmd.Context(), importOwner, importAccount, file)
	default:
		err = fmt.Errorf("unknown format %q", importFormat)
	}
	exitOnError(err, "import failed")

	fmt.Printf("Import %s: %d of %d rows imported\n", summary.Status, summary.Succeeded, summary.Total)
	for _, e := range summary.Errors {
		fmt.Printf("  %s\n", e)
	}
}

func columnMapping() importer.ColumnMapping {
	m := importer.ColumnMapping{Columns: map[string]int{}, HasHeader: importHeader}
	for name, idx := range map[string]int{
		importer.ColumnDate:        dateCol,
		importer.ColumnDescription: descCol,
		importer.ColumnAmount:      amountCol,
		importer.ColumnCategory:    categoryCol,
		importer.ColumnMerchant:    merchantCol,
	} {
		if idx >= 0 {
			m.Columns[name] = idx
		}
	}
	return m
}
