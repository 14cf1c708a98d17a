package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/warehouse/nomenclature"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

// LoadDocument returns a document with its lines in insertion order.
func LoadDocument(ctx context.Context, db *sqlite.DB, id int64) (Detail, error) {
	var out Detail
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = loadDocumentTx(ctx, tx, id)
		return err
	})
	return out, err
}

func loadDocumentTx(ctx context.Context, tx bun.Tx, id int64) (Detail, error) {
	var out Detail
	if err := tx.NewSelect().Model(&out.Document).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, fmt.Errorf("document %d: %w", id, api.ErrNotFound)
		}
		return out, err
	}
	var lines []models.DocumentLine
	if err := tx.NewSelect().Model(&lines).Where("document_id = ?", id).OrderExpr("id ASC").Scan(ctx); err != nil {
		return out, err
	}
	out.Details = make([]DetailLine, 0, len(lines))
	for _, l := range lines {
		line := DetailLine{ID: l.ID, LinePayload: drafttable.LinePayload{
			NomenclatureID: l.NomenclatureID,
			Quantity:       l.Quantity,
			Comment:        l.Comment,
		}}
		if l.WarehouseReceiverID != nil || l.OldQuantity != nil || l.Deviation != nil {
			line.MetaData = &drafttable.LineMeta{
				WarehouseReceiverID: l.WarehouseReceiverID,
				OldQuantity:         l.OldQuantity,
				Deviation:           l.Deviation,
			}
		}
		out.Details = append(out.Details, line)
	}
	return out, nil
}

// SaveDocument creates (id == 0) or replaces a draft document. With send set the
// document is also applied to stock balances and becomes read-only. Invalid payloads
// return drafttable.ValidationErrors keyed like the draft table.
func SaveDocument(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, operatorID, id int64, p drafttable.DocumentPayload, send bool) (models.Document, error) {
	var doc models.Document

	h, err := p.Header()
	if err != nil {
		var errs drafttable.ValidationErrors
		errs.Add(0, "carryingAt", "invalid date")
		return doc, errs
	}
	errs := drafttable.DeriveInventoryLines(&p)
	errs = append(errs, drafttable.ValidateDocument(h, p.Rows())...)
	if len(errs) > 0 {
		return doc, errs
	}
	if h.CarryingAt.IsZero() {
		h.CarryingAt = drafttable.PlainDate(time.Now())
	}

	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if errs, err := checkReferences(ctx, tx, h, p.Details); err != nil {
			return err
		} else if len(errs) > 0 {
			return errs
		}

		var before *Detail
		if id > 0 {
			existing, err := loadDocumentTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if existing.Document.Status == models.StatusSent {
				return fmt.Errorf("document %d is sent: %w", id, api.ErrReadOnly)
			}
			if existing.Document.Kind != h.Kind {
				var errs drafttable.ValidationErrors
				errs.Add(0, drafttable.KeyKind, "document kind cannot change")
				return errs
			}
			before = &existing
			doc = existing.Document
		} else {
			doc = models.Document{
				PublicID: uuid.NewString(),
				Kind:     h.Kind,
				Status:   models.StatusDraft,
			}
		}

		now := time.Now().UTC()
		doc.WarehouseID = h.WarehouseID
		doc.ResponsibleID = h.ResponsibleID
		doc.CarryingAt = h.CarryingAt
		doc.UpdatedAt = now
		if send {
			doc.Status = models.StatusSent
			doc.SentAt = &now
		}

		if doc.ID == 0 {
			doc.CreatedAt = now
			if _, err := tx.NewInsert().Model(&doc).Exec(ctx); err != nil {
				return fmt.Errorf("insert document: %w", err)
			}
		} else {
			if _, err := tx.NewUpdate().Model(&doc).WherePK().Exec(ctx); err != nil {
				return fmt.Errorf("update document: %w", err)
			}
			if _, err := tx.NewDelete().Model((*models.DocumentLine)(nil)).Where("document_id = ?", doc.ID).Exec(ctx); err != nil {
				return fmt.Errorf("clear lines: %w", err)
			}
		}

		lines := make([]models.DocumentLine, 0, len(p.Details))
		for _, l := range p.Details {
			line := models.DocumentLine{
				DocumentID:     doc.ID,
				NomenclatureID: l.NomenclatureID,
				Quantity:       l.Quantity,
				Comment:        l.Comment,
			}
			if l.MetaData != nil {
				line.WarehouseReceiverID = l.MetaData.WarehouseReceiverID
				line.OldQuantity = l.MetaData.OldQuantity
				line.Deviation = l.MetaData.Deviation
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
				return fmt.Errorf("insert lines: %w", err)
			}
		}

		if send {
			if err := applyStock(ctx, tx, h, p.Details); err != nil {
				return fmt.Errorf("apply stock: %w", err)
			}
		}

		action := "document.create"
		switch {
		case send:
			action = "document.send"
		case before != nil:
			action = "document.update"
		}
		var beforeAudit any
		if before != nil {
			beforeAudit = before
		}
		return auditSvc.Write(ctx, tx, operatorID, action, "documents", doc.ID, beforeAudit, p)
	})
	return doc, err
}

// checkReferences reports warehouses and products that do not exist.
func checkReferences(ctx context.Context, tx bun.Tx, h drafttable.DocumentHeader, lines []drafttable.LinePayload) (drafttable.ValidationErrors, error) {
	var errs drafttable.ValidationErrors
	exists := func(table string, id int64) (bool, error) {
		var n int
		err := tx.NewRaw("SELECT COUNT(1) FROM ? WHERE id = ?", bun.Ident(table), id).Scan(ctx, &n)
		return n > 0, err
	}

	ok, err := exists("warehouses", h.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		errs.Add(0, drafttable.KeyWarehouse, "unknown warehouse")
	}
	if h.Kind == models.KindMoving {
		ok, err := exists("warehouses", h.ReceiverID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs.Add(0, drafttable.KeyReceiver, "unknown warehouse")
		}
	}
	if h.ResponsibleID > 0 {
		ok, err := exists("workers", h.ResponsibleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs.Add(0, drafttable.KeyResponsible, "unknown worker")
		}
	}
	for i, l := range lines {
		rowID := int64(i + 1)
		ok, err := exists("nomenclature", l.NomenclatureID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs.Add(rowID, drafttable.KeyNomenclature, "unknown product")
		}
		if h.Kind == models.KindMoving && (l.MetaData == nil || l.MetaData.WarehouseReceiverID == nil || *l.MetaData.WarehouseReceiverID != h.ReceiverID) {
			errs.Add(rowID, drafttable.KeyReceiver, "every line must go to the same destination")
		}
	}
	return errs, nil
}

// applyStock moves balances: a receipt adds, a move transfers, an inventory
// overwrites with the counted quantity.
func applyStock(ctx context.Context, tx bun.Tx, h drafttable.DocumentHeader, lines []drafttable.LinePayload) error {
	for _, l := range lines {
		var err error
		switch h.Kind {
		case models.KindReceipt:
			err = nomenclature.AddStock(ctx, tx, h.WarehouseID, l.NomenclatureID, l.Quantity)
		case models.KindMoving:
			if err = nomenclature.AddStock(ctx, tx, h.WarehouseID, l.NomenclatureID, -l.Quantity); err == nil {
				err = nomenclature.AddStock(ctx, tx, h.ReceiverID, l.NomenclatureID, l.Quantity)
			}
		case models.KindInventory:
			err = nomenclature.SetStock(ctx, tx, h.WarehouseID, l.NomenclatureID, l.Quantity)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ListDocuments returns one page of documents matching f, newest first.
func ListDocuments(ctx context.Context, db *sqlite.DB, f sharedcontext.Filter) (ListResult, error) {
	result := ListResult{Items: make([]ListItem, 0), Page: f.Page, Size: f.Size}
	where := "WHERE 1 = 1"
	args := []any{}
	if f.Kind != "" {
		where += " AND d.kind = ?"
		args = append(args, f.Kind)
	}
	if f.WarehouseID > 0 {
		where += " AND d.warehouse_id = ?"
		args = append(args, f.WarehouseID)
	}
	if !f.DateStart.IsZero() {
		where += " AND date(d.carrying_at) >= ?"
		args = append(args, f.DateStart.Format(drafttable.DateLayout))
	}
	if !f.DateEnd.IsZero() {
		where += " AND date(d.carrying_at) <= ?"
		args = append(args, f.DateEnd.Format(drafttable.DateLayout))
	}

	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw("SELECT COUNT(1) FROM documents d "+where, args...).Scan(ctx, &result.Total); err != nil {
			return err
		}
		pageArgs := append(append([]any{}, args...), f.Size, f.Offset())
		return tx.NewRaw(`
SELECT d.id, d.public_id, d.kind, d.status, d.warehouse_id,
       COALESCE(w.name, '') AS warehouse_name,
       COALESCE(wk.name, '') AS responsible,
       strftime('%d.%m.%Y', d.carrying_at) AS carrying_at,
       (SELECT COUNT(1) FROM document_lines dl WHERE dl.document_id = d.id) AS line_count,
       (SELECT COALESCE(SUM(dl.quantity), 0) FROM document_lines dl WHERE dl.document_id = d.id) AS total_quantity
FROM documents d
LEFT JOIN warehouses w ON w.id = d.warehouse_id
LEFT JOIN workers wk ON wk.id = d.responsible_id
`+where+`
ORDER BY d.carrying_at DESC, d.id DESC
LIMIT ? OFFSET ?`, pageArgs...).Scan(ctx, &result.Items)
	})
	return result, err
}
