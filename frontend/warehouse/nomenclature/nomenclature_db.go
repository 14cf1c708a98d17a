package nomenclature

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/uptrace/bun"

	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/location"
	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

func ListNomenclature(ctx context.Context, db *sqlite.DB) ([]models.Nomenclature, error) {
	rows := make([]models.Nomenclature, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).OrderExpr("sku COLLATE NOCASE ASC").Scan(ctx)
	})
	return rows, err
}

// ImportCSV upserts products by sku from a "sku,name,unit" file. Bad lines are
// counted and skipped; the run itself is recorded with the summary.
func ImportCSV(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, operatorID int64, reader io.Reader) (ImportSummary, error) {
	summary := ImportSummary{}
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return summary, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "sku") || !strings.EqualFold(strings.TrimSpace(header[1]), "name") {
		return summary, fmt.Errorf("invalid CSV header; expected sku,name,unit")
	}

	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil || len(record) < 2 {
				summary.Errors++
				continue
			}
			sku := strings.TrimSpace(record[0])
			name := strings.TrimSpace(record[1])
			unit := "pcs"
			if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
				unit = strings.TrimSpace(record[2])
			}
			if sku == "" || name == "" {
				summary.Errors++
				continue
			}

			var exists int
			if err := tx.NewRaw("SELECT COUNT(1) FROM nomenclature WHERE sku = ?", sku).Scan(ctx, &exists); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO nomenclature (sku, name, unit, created_at, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(sku) DO UPDATE SET
  name = excluded.name,
  unit = excluded.unit,
  updated_at = CURRENT_TIMESTAMP`, sku, name, unit); err != nil {
				summary.Errors++
				continue
			}
			if exists > 0 {
				summary.Updated++
			} else {
				summary.Inserted++
			}
		}

		var runID int64
		if err := tx.NewRaw(`
INSERT INTO nomenclature_import_runs (operator_id, inserted_count, updated_count, error_count)
VALUES (?, ?, ?, ?)
RETURNING id`, operatorID, summary.Inserted, summary.Updated, summary.Errors).Scan(ctx, &runID); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, operatorID, "nomenclature.import", "nomenclature_import_runs", runID, nil, summary)
	})
	return summary, err
}

// DeleteNomenclature removes unused products. Products referenced by document lines
// or balances count as failed.
func DeleteNomenclature(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, operatorID int64, ids []int64) (deleted int, failed int, err error) {
	filtered := location.UniquePositiveIDs(ids)
	if len(filtered) == 0 {
		return 0, 0, nil
	}

	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range filtered {
			var before models.Nomenclature
			if err := tx.NewSelect().Model(&before).Where("id = ?", id).Scan(ctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					failed++
					continue
				}
				return err
			}
			var refs int
			if err := tx.NewRaw(`
SELECT (SELECT COUNT(1) FROM document_lines WHERE nomenclature_id = ?) +
       (SELECT COUNT(1) FROM stock_balances WHERE nomenclature_id = ? AND quantity <> 0)`, id, id).Scan(ctx, &refs); err != nil {
				return err
			}
			if refs > 0 {
				failed++
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM stock_balances WHERE nomenclature_id = ?`, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM nomenclature WHERE id = ?`, id); err != nil {
				return err
			}
			deleted++
			if err := auditSvc.Write(ctx, tx, operatorID, "nomenclature.delete", "nomenclature", id, before, nil); err != nil {
				return err
			}
		}
		return nil
	})
	return deleted, failed, err
}

// ProductOptions lists products as select options labelled "sku - name".
func ProductOptions(ctx context.Context, db *sqlite.DB) ([]drafttable.Option, error) {
	rows, err := ListNomenclature(ctx, db)
	if err != nil {
		return nil, err
	}
	opts := make([]drafttable.Option, 0, len(rows))
	for _, n := range rows {
		opts = append(opts, drafttable.Option{Label: n.SKU + " - " + n.Name, Value: n.ID})
	}
	return opts, nil
}

// ListStock returns the balances of one warehouse, or all of them when warehouseID is 0.
func ListStock(ctx context.Context, db *sqlite.DB, warehouseID int64) ([]StockRow, error) {
	rows := make([]StockRow, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := `
SELECT sb.warehouse_id, sb.nomenclature_id, n.sku, n.name, n.unit, sb.quantity,
       strftime('%d.%m.%Y %H:%M', sb.updated_at) AS updated_at
FROM stock_balances sb
JOIN nomenclature n ON n.id = sb.nomenclature_id`
		args := []any{}
		if warehouseID > 0 {
			q += "\nWHERE sb.warehouse_id = ?"
			args = append(args, warehouseID)
		}
		q += "\nORDER BY sb.warehouse_id ASC, n.sku COLLATE NOCASE ASC"
		return tx.NewRaw(q, args...).Scan(ctx, &rows)
	})
	return rows, err
}

// OnHand loads the balances of a warehouse keyed by product.
func OnHand(ctx context.Context, db *sqlite.DB, warehouseID int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	if warehouseID <= 0 {
		return out, nil
	}
	var rows []models.StockBalance
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).Where("warehouse_id = ?", warehouseID).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.NomenclatureID] = b.Quantity
	}
	return out, nil
}

// Baseline returns the inventory baseline lookup of a warehouse.
func Baseline(ctx context.Context, db *sqlite.DB, warehouseID int64) (drafttable.BaselineFunc, error) {
	onHand, err := OnHand(ctx, db, warehouseID)
	if err != nil {
		return nil, err
	}
	return func(id int64) (float64, bool) {
		q, ok := onHand[id]
		return q, ok
	}, nil
}

// AddStock changes a balance by delta inside the caller's transaction.
func AddStock(ctx context.Context, tx bun.Tx, warehouseID, nomenclatureID int64, delta float64) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO stock_balances (warehouse_id, nomenclature_id, quantity, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(warehouse_id, nomenclature_id) DO UPDATE SET
  quantity = stock_balances.quantity + excluded.quantity,
  updated_at = CURRENT_TIMESTAMP`, warehouseID, nomenclatureID, delta)
	return err
}

// SetStock overwrites a balance inside the caller's transaction.
func SetStock(ctx context.Context, tx bun.Tx, warehouseID, nomenclatureID int64, quantity float64) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO stock_balances (warehouse_id, nomenclature_id, quantity, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(warehouse_id, nomenclature_id) DO UPDATE SET
  quantity = excluded.quantity,
  updated_at = CURRENT_TIMESTAMP`, warehouseID, nomenclatureID, quantity)
	return err
}

// Options returns a JSON option list by name.
func Options(ctx context.Context, db *sqlite.DB, kind string) ([]OptionItem, error) {
	items := make([]OptionItem, 0)
	var query string
	switch kind {
	case "nomenclature":
		query = `SELECT id, sku || ' - ' || name AS label FROM nomenclature ORDER BY sku COLLATE NOCASE ASC`
	case "warehouses":
		query = `SELECT id, name AS label FROM warehouses ORDER BY name ASC, id ASC`
	case "workers":
		query = `SELECT id, name AS label FROM workers ORDER BY name ASC, id ASC`
	case "paper-types":
		query = `SELECT id, name AS label FROM paper_types ORDER BY kind ASC, name ASC`
	case "organizations":
		query = `SELECT id, name AS label FROM organizations ORDER BY name ASC, id ASC`
	case "locations":
		query = `SELECT id, name AS label FROM locations ORDER BY name ASC, id ASC`
	default:
		return nil, fmt.Errorf("unknown option list %q", kind)
	}
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(query).Scan(ctx, &items)
	})
	return items, err
}

// ToDraftOptions converts option items for select columns.
func ToDraftOptions(items []OptionItem) []drafttable.Option {
	out := make([]drafttable.Option, 0, len(items))
	for _, it := range items {
		out = append(out, drafttable.Option{Label: it.Label, Value: it.ID})
	}
	return out
}
