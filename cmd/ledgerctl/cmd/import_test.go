package cmd

import (
	"testing"

	"github.com/Dan9191/ledger-service/internal/importer"
)

func TestColumnMapping(t *testing.T) {
	importHeader = false
	dateCol, descCol, amountCol, categoryCol, merchantCol = 2, -1, 0, 3, -1

	m := columnMapping()
	if m.HasHeader {
		t.Error("HasHeader should follow the flag")
	}
	want := map[string]int{
		importer.ColumnDate:     2,
		importer.ColumnAmount:   0,
		importer.ColumnCategory: 3,
	}
	if len(m.Columns) != len(want) {
		t.Fatalf("Columns = %v, want %v", m.Columns, want)
	}
	for k, v := range want {
		if m.Columns[k] != v {
			t.Errorf("Columns[%s] = %d, want %d", k, m.Columns[k], v)
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"migrate", "recompute-balances", "sync", "retry-errors", "report-errors", "import", "user"} {
		if c, _, err := rootCmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
