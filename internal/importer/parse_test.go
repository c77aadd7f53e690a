package importer

import (
	"testing"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want models.Date
	}{
		{"2024-03-15", models.NewDate(2024, time.March, 15)},
		{"2024-3-5", models.NewDate(2024, time.March, 5)},
		{"03/15/2024", models.NewDate(2024, time.March, 15)},
		{"3/4/2024", models.NewDate(2024, time.March, 4)},
		{"15/03/2024", models.NewDate(2024, time.March, 15)},
		{"03-15-2024", models.NewDate(2024, time.March, 15)},
		{"15-03-2024", models.NewDate(2024, time.March, 15)},
		{" 2024-01-02 ", models.NewDate(2024, time.January, 2)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"not-a-date", "", "2024/13/45", "32/13/2024"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50", "12.5"},
		{"$1,234.56", "1234.56"},
		{"-45.00", "-45"},
		{"(12.50)", "-12.5"},
		{"€ 99", "99"},
		{"0.10", "0.1"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "abc", "$", "1.2.3", "12.345", "184467440737095516.17"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Errorf("ParseAmount(%q) should fail", bad)
		}
	}
}
