package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/beevik/etree"
)

// ReadCAMT turns the entries of an ISO 20022 camt.053 statement into rows.
// Debit entries become negative amounts. The counterparty name becomes the
// merchant.
func ReadCAMT(r io.Reader) ([]Row, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, models.NewFieldError("file", "invalid XML: %v", err)
	}
	entries := doc.FindElements("//Stmt/Ntry")
	if len(entries) == 0 {
		entries = doc.FindElements("//Ntry")
	}

	rows := make([]Row, 0, len(entries))
	for i, ntry := range entries {
		row := Row{Line: i + 1}
		row.Date = firstText(ntry, "BookgDt/Dt", "BookgDt/DtTm", "ValDt/Dt", "ValDt/DtTm")
		if len(row.Date) > 10 {
			row.Date = row.Date[:10]
		}

		amount := firstText(ntry, "Amt")
		debit := strings.EqualFold(firstText(ntry, "CdtDbtInd"), "DBIT")
		if amount != "" && debit {
			amount = "-" + amount
		}
		row.Amount = amount

		row.Description = firstText(ntry,
			"NtryDtls/TxDtls/RmtInf/Ustrd",
			"AddtlNtryInf",
			"NtryDtls/TxDtls/AddtlTxInf",
		)
		if debit {
			row.Merchant = firstText(ntry, "NtryDtls/TxDtls/RltdPties/Cdtr/Nm", "NtryDtls/TxDtls/RltdPties/Cdtr/Pty/Nm")
		} else {
			row.Merchant = firstText(ntry, "NtryDtls/TxDtls/RltdPties/Dbtr/Nm", "NtryDtls/TxDtls/RltdPties/Dbtr/Pty/Nm")
		}
		if row.Description == "" {
			row.Description = row.Merchant
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func firstText(e *etree.Element, paths ...string) string {
	for _, p := range paths {
		if found := e.FindElement(p); found != nil {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// ImportCAMT reads a camt.053 statement and imports it into accountID.
func (im *Importer) ImportCAMT(ctx context.Context, ownerID, accountID int64, r io.Reader) (*Summary, error) {
	rows, err := ReadCAMT(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	return im.ImportRows(ctx, ownerID, accountID, rows)
}
