package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"

	"washdesk/frontend/finance/papers"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/sqlite"
)

// writeDocumentsCSV writes one record per document line of the documents matching f.
// Paging fields of f are ignored.
func writeDocumentsCSV(ctx context.Context, db *sqlite.DB, w io.Writer, f sharedcontext.Filter) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"document_id", "public_id", "kind", "status", "carrying_at", "warehouse", "responsible", "sku", "product", "quantity", "comment"}
	if err := writer.Write(header); err != nil {
		return 0, err
	}

	type row struct {
		DocumentID  int64   `bun:"document_id"`
		PublicID    string  `bun:"public_id"`
		Kind        string  `bun:"kind"`
		Status      string  `bun:"status"`
		CarryingAt  string  `bun:"carrying_at"`
		Warehouse   string  `bun:"warehouse"`
		Responsible string  `bun:"responsible"`
		SKU         string  `bun:"sku"`
		Product     string  `bun:"product"`
		Quantity    float64 `bun:"quantity"`
		Comment     string  `bun:"comment"`
	}

	rows := make([]row, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := `
SELECT d.id AS document_id, d.public_id, d.kind, d.status,
       strftime('%d.%m.%Y', d.carrying_at) AS carrying_at,
       COALESCE(w.name, '') AS warehouse,
       COALESCE(wk.name, '') AS responsible,
       n.sku, n.name AS product, dl.quantity, dl.comment
FROM document_lines dl
JOIN documents d ON d.id = dl.document_id
JOIN nomenclature n ON n.id = dl.nomenclature_id
LEFT JOIN warehouses w ON w.id = d.warehouse_id
LEFT JOIN workers wk ON wk.id = d.responsible_id
WHERE 1 = 1`
		args := make([]any, 0)
		if f.Kind != "" {
			q += " AND d.kind = ?"
			args = append(args, f.Kind)
		}
		if f.WarehouseID > 0 {
			q += " AND d.warehouse_id = ?"
			args = append(args, f.WarehouseID)
		}
		if !f.DateStart.IsZero() {
			q += " AND date(d.carrying_at) >= ?"
			args = append(args, f.DateStart.Format(drafttable.DateLayout))
		}
		if !f.DateEnd.IsZero() {
			q += " AND date(d.carrying_at) <= ?"
			args = append(args, f.DateEnd.Format(drafttable.DateLayout))
		}
		q += " ORDER BY d.carrying_at ASC, d.id ASC, dl.id ASC"
		return tx.NewRaw(q, args...).Scan(ctx, &rows)
	})
	if err != nil {
		return 0, err
	}

	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.DocumentID, 10),
			r.PublicID,
			r.Kind,
			r.Status,
			r.CarryingAt,
			r.Warehouse,
			r.Responsible,
			r.SKU,
			r.Product,
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
			r.Comment,
		}
		if err := writer.Write(record); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	return len(rows), writer.Error()
}

const ledgerSheet = "Ledger"

// writePapersXLSX writes every ledger row matching f as a workbook with a totals
// footer.
func writePapersXLSX(ctx context.Context, db *sqlite.DB, w io.Writer, f sharedcontext.Filter) (int, error) {
	all := make([]papers.Paper, 0)
	page := f
	page.Size = sharedcontext.MaxPageSize
	for page.Page = 1; ; page.Page++ {
		result, err := papers.ListPapers(ctx, db, page)
		if err != nil {
			return 0, err
		}
		all = append(all, result.Items...)
		if len(result.Items) < page.Size || len(all) >= result.Total {
			break
		}
	}
	summary, err := papers.Summarize(ctx, db, f)
	if err != nil {
		return 0, err
	}

	book := excelize.NewFile()
	defer func() { _ = book.Close() }()
	if err := book.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return 0, err
	}
	money, err := book.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return 0, err
	}
	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}

	header := []any{"ID", "Date", "Type", "Kind", "Location", "Amount", "Comment"}
	if err := book.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		return 0, err
	}
	if err := book.SetRowStyle(ledgerSheet, 1, 1, bold); err != nil {
		return 0, err
	}
	for i, p := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := []any{p.ID, p.EventDate, p.PaperTypeName, p.PaperKind, p.LocationName, p.Amount.InexactFloat64(), p.Comment}
		if err := book.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return 0, err
		}
	}

	footer := len(all) + 3
	totals := []struct {
		label string
		value float64
	}{
		{"Receipts", summary.Receipts.InexactFloat64()},
		{"Expenditures", summary.Expenditures.InexactFloat64()},
		{"Balance", summary.Balance.InexactFloat64()},
	}
	for i, t := range totals {
		if err := book.SetCellValue(ledgerSheet, fmt.Sprintf("E%d", footer+i), t.label); err != nil {
			return 0, err
		}
		if err := book.SetCellValue(ledgerSheet, fmt.Sprintf("F%d", footer+i), t.value); err != nil {
			return 0, err
		}
	}
	if err := book.SetCellStyle(ledgerSheet, "F2", fmt.Sprintf("F%d", footer+len(totals)-1), money); err != nil {
		return 0, err
	}
	if err := book.SetColWidth(ledgerSheet, "B", "E", 18); err != nil {
		return 0, err
	}
	if err := book.SetColWidth(ledgerSheet, "G", "G", 40); err != nil {
		return 0, err
	}
	if _, err := book.WriteTo(w); err != nil {
		return 0, err
	}
	return len(all), nil
}

func recordExportRun(ctx context.Context, db *sqlite.DB, operatorID int64, exportType string, rowCount int) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var op any
		if operatorID > 0 {
			op = operatorID
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO export_runs (operator_id, export_type, row_count, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`, op, exportType, rowCount)
		return err
	})
}

// RecentRuns returns the latest export runs, newest first.
func RecentRuns(ctx context.Context, db *sqlite.DB, limit int) ([]Run, error) {
	runs := make([]Run, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT er.id, er.export_type, er.row_count,
       COALESCE(er.operator_id, 0) AS operator_id,
       strftime('%d.%m.%Y %H:%M', er.created_at) AS created_at
FROM export_runs er
ORDER BY er.id DESC
LIMIT ?`, limit).Scan(ctx, &runs)
	})
	return runs, err
}
