package importer

import (
	"strings"
	"testing"
)

const camtStatement = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:camt.053.001.02">
  <BkToCstmrStmt>
    <Stmt>
      <Id>STMT-1</Id>
      <Ntry>
        <Amt Ccy="EUR">42.50</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <BookgDt><Dt>2024-02-01</Dt></BookgDt>
        <NtryDtls><TxDtls>
          <RltdPties><Cdtr><Nm>City Power</Nm></Cdtr></RltdPties>
          <RmtInf><Ustrd>Electricity January</Ustrd></RmtInf>
        </TxDtls></NtryDtls>
      </Ntry>
      <Ntry>
        <Amt Ccy="EUR">2500.00</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <BookgDt><DtTm>2024-02-03T09:30:00</DtTm></BookgDt>
        <NtryDtls><TxDtls>
          <RltdPties><Dbtr><Nm>ACME Corp</Nm></Dbtr></RltdPties>
        </TxDtls></NtryDtls>
      </Ntry>
    </Stmt>
  </BkToCstmrStmt>
</Document>`

func TestReadCAMT(t *testing.T) {
	rows, err := ReadCAMT(strings.NewReader(camtStatement))
	if err != nil {
		t.Fatalf("ReadCAMT: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	power := rows[0]
	if power.Date != "2024-02-01" || power.Amount != "-42.50" || power.Merchant != "City Power" || power.Description != "Electricity January" {
		t.Errorf("debit entry = %+v", power)
	}
	salary := rows[1]
	if salary.Date != "2024-02-03" || salary.Amount != "2500.00" || salary.Merchant != "ACME Corp" {
		t.Errorf("credit entry = %+v", salary)
	}
	if salary.Description != "ACME Corp" {
		t.Errorf("description should fall back to counterparty, got %q", salary.Description)
	}
}

func TestReadCAMTInvalidXML(t *testing.T) {
	if _, err := ReadCAMT(strings.NewReader("<Document><Stmt>")); err == nil {
		t.Error("expected error for truncated XML")
	}
}
