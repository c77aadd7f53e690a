package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order; the first match wins, so an ambiguous
// date like 03/04/2024 reads month first.
var dateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
}

// ParseDate reads a statement date in any of the supported layouts.
func ParseDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognized date %q", s)
}

var amountReplacer = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", " ", "")

// ParseAmount reads a signed amount, dropping currency symbols and thousands
// separators. Parentheses mean negative, as in (12.50).
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountReplacer.Replace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	if !models.HasCents(d) {
		return decimal.Decimal{}, fmt.Errorf("amount %q has more than two fraction digits", s)
	}
	if !models.FitsMinor(d) {
		return decimal.Decimal{}, fmt.Errorf("amount %q is too large", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
