package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/Dan9191/ledger-service/internal/models"
)

func TestReadCSV(t *testing.T) {
	input := "Date,Description,Amount,Category\n" +
		"2024-01-05,Paycheck,1500.00,Salary\n" +
		",,,\n" +
		"2024-01-06,Groceries,-82.10,\n" +
		"2024-01-07,Short\n"
	m := ColumnMapping{
		Columns:   map[string]int{ColumnDate: 0, ColumnDescription: 1, ColumnAmount: 2, ColumnCategory: 3},
		HasHeader: true,
	}

	rows, err := ReadCSV(strings.NewReader(input), m)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (blank row skipped)", len(rows))
	}
	if rows[0].Line != 1 || rows[0].Category != "Salary" || rows[0].Amount != "1500.00" {
		t.Errorf("row 1 = %+v", rows[0])
	}
	if rows[1].Line != 3 || rows[1].Category != "" {
		t.Errorf("row 3 = %+v", rows[1])
	}
	if rows[2].Err == "" {
		t.Errorf("short row should carry a mapping error: %+v", rows[2])
	}
}

func TestReadCSVMalformedRecord(t *testing.T) {
	input := "2024-01-05,Paycheck,1500.00\n" +
		"2024-01-06,Joe\"s Diner,-12.00\n" +
		"2024-01-07,Groceries,-82.10\n"
	m := ColumnMapping{Columns: map[string]int{ColumnDate: 0, ColumnDescription: 1, ColumnAmount: 2}}

	rows, err := ReadCSV(strings.NewReader(input), m)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1].Line != 2 || rows[1].Err == "" {
		t.Errorf("malformed row = %+v", rows[1])
	}
	if rows[2].Line != 3 || rows[2].Err != "" || rows[2].Description != "Groceries" {
		t.Errorf("row after malformed one = %+v", rows[2])
	}
}

func TestColumnMappingValidate(t *testing.T) {
	tests := []struct {
		name    string
		columns map[string]int
		wantErr bool
	}{
		{"complete", map[string]int{"date": 0, "amount": 1}, false},
		{"missing date", map[string]int{"amount": 1}, true},
		{"missing amount", map[string]int{"date": 0, "description": 1}, true},
		{"negative index", map[string]int{"date": 0, "amount": -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ColumnMapping{Columns: tt.columns}.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, models.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
