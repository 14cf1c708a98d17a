package papers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/location"
	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

// Column keys of the ledger table. They double as PATCH body keys.
const (
	KeyPaperType = "paperTypeId"
	KeyLocation  = "locationId"
	KeyEventDate = "eventDate"
	KeyAmount    = "amount"
	KeyComment   = "comment"
)

const selectPapers = `
SELECT mp.id, mp.paper_type_id, pt.name AS paper_type_name, pt.kind AS paper_kind,
       mp.organization_id, mp.location_id, COALESCE(l.name, '') AS location_name,
       date(mp.event_date) AS event_date, mp.amount, mp.comment
FROM manager_papers mp
JOIN paper_types pt ON pt.id = mp.paper_type_id
LEFT JOIN locations l ON l.id = mp.location_id
`

// LedgerColumns describes the editable ledger table.
func LedgerColumns(l Lookups) drafttable.Columns {
	return drafttable.Columns{
		{Key: KeyEventDate, Label: "Date", EditKind: drafttable.KindDate},
		{Key: KeyPaperType, Label: "Type", EditKind: drafttable.KindSelect, Options: l.PaperTypes},
		{Key: KeyLocation, Label: "Location", EditKind: drafttable.KindSelect, Options: l.Locations},
		{Key: KeyAmount, Label: "Amount", EditKind: drafttable.KindNumber},
		{Key: KeyComment, Label: "Comment", EditKind: drafttable.KindText},
	}
}

// Row converts a ledger row for the draft table.
func (p Paper) Row() drafttable.DraftRow {
	var loc int64
	if p.LocationID != nil {
		loc = *p.LocationID
	}
	date, _ := drafttable.ParseDate(p.EventDate)
	return drafttable.DraftRow{ID: p.ID, Fields: map[string]drafttable.Value{
		KeyEventDate: drafttable.Date(date),
		KeyPaperType: drafttable.Select(p.PaperTypeID),
		KeyLocation:  drafttable.Select(loc),
		KeyAmount:    drafttable.Number(p.Amount.InexactFloat64()),
		KeyComment:   drafttable.Text(p.Comment),
	}}
}

func filterWhere(f sharedcontext.Filter) (string, []any) {
	where := "WHERE 1 = 1"
	args := []any{}
	if !f.DateStart.IsZero() {
		where += " AND date(mp.event_date) >= ?"
		args = append(args, f.DateStart.Format(drafttable.DateLayout))
	}
	if !f.DateEnd.IsZero() {
		where += " AND date(mp.event_date) <= ?"
		args = append(args, f.DateEnd.Format(drafttable.DateLayout))
	}
	if f.OrganizationID > 0 {
		where += " AND mp.organization_id = ?"
		args = append(args, f.OrganizationID)
	}
	if f.LocationID > 0 {
		where += " AND mp.location_id = ?"
		args = append(args, f.LocationID)
	}
	if f.PaperTypeID > 0 {
		where += " AND mp.paper_type_id = ?"
		args = append(args, f.PaperTypeID)
	}
	return where, args
}

// ListPapers returns one page of ledger rows, newest first.
func ListPapers(ctx context.Context, db *sqlite.DB, f sharedcontext.Filter) (ListResult, error) {
	result := ListResult{Items: make([]Paper, 0), Page: f.Page, Size: f.Size}
	where, args := filterWhere(f)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw("SELECT COUNT(1) FROM manager_papers mp "+where, args...).Scan(ctx, &result.Total); err != nil {
			return err
		}
		pageArgs := append(append([]any{}, args...), f.Size, f.Offset())
		return tx.NewRaw(selectPapers+where+"\nORDER BY date(mp.event_date) DESC, mp.id DESC\nLIMIT ? OFFSET ?", pageArgs...).Scan(ctx, &result.Items)
	})
	return result, err
}

// Summarize adds up every row matching f, ignoring paging. Amounts are summed as
// decimals.
func Summarize(ctx context.Context, db *sqlite.DB, f sharedcontext.Filter) (Summary, error) {
	type amountRow struct {
		Kind   string          `bun:"kind"`
		Amount decimal.Decimal `bun:"amount"`
	}
	var rows []amountRow
	where, args := filterWhere(f)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`
SELECT pt.kind, mp.amount
FROM manager_papers mp
JOIN paper_types pt ON pt.id = mp.paper_type_id
`+where, args...).Scan(ctx, &rows)
	})
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Receipts: decimal.Zero, Expenditures: decimal.Zero}
	for _, r := range rows {
		switch r.Kind {
		case models.PaperReceipt:
			s.Receipts = s.Receipts.Add(r.Amount)
		case models.PaperExpenditure:
			s.Expenditures = s.Expenditures.Add(r.Amount)
		}
	}
	s.Balance = s.Receipts.Sub(s.Expenditures)
	return s, nil
}

func LoadPaper(ctx context.Context, db *sqlite.DB, id int64) (Paper, error) {
	var p Paper
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		p, err = loadPaperTx(ctx, tx, id)
		return err
	})
	return p, err
}

func loadPaperTx(ctx context.Context, tx bun.Tx, id int64) (Paper, error) {
	var p Paper
	err := tx.NewRaw(selectPapers+"WHERE mp.id = ?", id).Scan(ctx, &p)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("paper %d: %w", id, api.ErrNotFound)
	}
	return p, err
}

// maxAmount keeps amounts within 15 significant digits at cent precision, the range
// a draft table number cell carries without rounding.
var maxAmount = decimal.New(1, 13)

func amountError(v decimal.Decimal) string {
	switch {
	case !v.IsPositive():
		return "amount must be greater than zero"
	case !v.Round(2).Equal(v):
		return "amount has more than two decimal places"
	case v.GreaterThanOrEqual(maxAmount):
		return "amount is too large"
	}
	return ""
}

// CreatePaper validates and inserts a ledger row.
func CreatePaper(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, operatorID int64, in CreateInput) (Paper, error) {
	var errs drafttable.ValidationErrors
	date, err := drafttable.ParseDate(in.EventDate)
	if err != nil || date.IsZero() {
		errs.Add(0, KeyEventDate, "choose a date")
	}
	if msg := amountError(in.Amount); msg != "" {
		errs.Add(0, KeyAmount, msg)
	}
	if in.PaperTypeID <= 0 {
		errs.Add(0, KeyPaperType, "choose a paper type")
	}
	if in.OrganizationID <= 0 {
		errs.Add(0, "organizationId", "choose an organization")
	}
	if len(errs) > 0 {
		return Paper{}, errs
	}

	var out Paper
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if errs, err := checkPaperRefs(ctx, tx, 0, in.OrganizationID, &in.PaperTypeID, in.LocationID); err != nil {
			return err
		} else if len(errs) > 0 {
			return errs
		}
		row := models.ManagerPaper{
			PaperTypeID:    in.PaperTypeID,
			OrganizationID: in.OrganizationID,
			LocationID:     positiveOrNil(in.LocationID),
			EventDate:      date.Format(drafttable.DateLayout),
			Amount:         in.Amount,
			Comment:        strings.TrimSpace(in.Comment),
			OperatorID:     operatorID,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert paper: %w", err)
		}
		var err error
		if out, err = loadPaperTx(ctx, tx, row.ID); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, operatorID, "paper.create", "manager_papers", row.ID, nil, out)
	})
	return out, err
}

// PatchPaper applies a partial update. Only the keys present in fields change;
// errors are keyed by the row id.
func PatchPaper(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, operatorID, id int64, fields map[string]json.RawMessage) (Paper, error) {
	var out Paper
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		before, err := loadPaperTx(ctx, tx, id)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var errs drafttable.ValidationErrors
		sets := make([]string, 0, len(keys))
		args := make([]any, 0, len(keys)+1)
		var paperType *int64
		location := before.LocationID
		locationSet := false
		for _, k := range keys {
			raw := fields[k]
			switch k {
			case KeyPaperType:
				var v int64
				if err := json.Unmarshal(raw, &v); err != nil || v <= 0 {
					errs.Add(id, k, "choose a paper type")
					continue
				}
				paperType = &v
				sets = append(sets, "paper_type_id = ?")
				args = append(args, v)
			case KeyLocation:
				var v *int64
				if err := json.Unmarshal(raw, &v); err != nil {
					errs.Add(id, k, "invalid location")
					continue
				}
				location, locationSet = positiveOrNil(v), true
				sets = append(sets, "location_id = ?")
				args = append(args, location)
			case KeyEventDate:
				var s string
				if err := json.Unmarshal(raw, &s); err != nil {
					errs.Add(id, k, "choose a date")
					continue
				}
				d, err := drafttable.ParseDate(s)
				if err != nil || d.IsZero() {
					errs.Add(id, k, "choose a date")
					continue
				}
				sets = append(sets, "event_date = ?")
				args = append(args, d.Format(drafttable.DateLayout))
			case KeyAmount:
				var v decimal.Decimal
				if err := v.UnmarshalJSON(raw); err != nil {
					errs.Add(id, k, "amount must be greater than zero")
					continue
				}
				if msg := amountError(v); msg != "" {
					errs.Add(id, k, msg)
					continue
				}
				sets = append(sets, "amount = ?")
				args = append(args, v)
			case KeyComment:
				var s string
				if err := json.Unmarshal(raw, &s); err != nil {
					errs.Add(id, k, "invalid comment")
					continue
				}
				sets = append(sets, "comment = ?")
				args = append(args, strings.TrimSpace(s))
			default:
				errs.Add(id, k, "field cannot be changed")
			}
		}
		if len(errs) > 0 {
			return errs
		}
		if len(sets) == 0 {
			out = before
			return nil
		}
		var checkLocation *int64
		if locationSet {
			checkLocation = location
		}
		refErrs, err := checkPaperRefs(ctx, tx, id, before.OrganizationID, paperType, checkLocation)
		if err != nil {
			return err
		}
		if len(refErrs) > 0 {
			return refErrs
		}

		args = append(args, id)
		if _, err := tx.ExecContext(ctx, "UPDATE manager_papers SET "+strings.Join(sets, ", ")+", updated_at = CURRENT_TIMESTAMP WHERE id = ?", args...); err != nil {
			return fmt.Errorf("update paper: %w", err)
		}
		if out, err = loadPaperTx(ctx, tx, id); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, operatorID, "paper.update", "manager_papers", id, before, out)
	})
	return out, err
}

// DeletePapers removes the given rows and returns how many existed.
func DeletePapers(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, operatorID int64, ids []int64) (int, error) {
	filtered := location.UniquePositiveIDs(ids)
	if len(filtered) == 0 {
		var errs drafttable.ValidationErrors
		errs.Add(0, "ids", "select at least one row")
		return 0, errs
	}
	deleted := 0
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range filtered {
			before, err := loadPaperTx(ctx, tx, id)
			if errors.Is(err, api.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if _, err := tx.NewDelete().Model((*models.ManagerPaper)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
				return fmt.Errorf("delete paper %d: %w", id, err)
			}
			deleted++
			if err := auditSvc.Write(ctx, tx, operatorID, "paper.delete", "manager_papers", id, before, nil); err != nil {
				return err
			}
		}
		return nil
	})
	return deleted, err
}

// checkPaperRefs validates the paper type and location a row points at. Nil
// arguments are not checked.
func checkPaperRefs(ctx context.Context, tx bun.Tx, rowID, orgID int64, paperType, locationID *int64) (drafttable.ValidationErrors, error) {
	var errs drafttable.ValidationErrors
	if paperType != nil {
		var n int
		if err := tx.NewRaw("SELECT COUNT(1) FROM paper_types WHERE id = ?", *paperType).Scan(ctx, &n); err != nil {
			return nil, err
		}
		if n == 0 {
			errs.Add(rowID, KeyPaperType, "unknown paper type")
		}
	}
	if rowID == 0 {
		var n int
		if err := tx.NewRaw("SELECT COUNT(1) FROM organizations WHERE id = ?", orgID).Scan(ctx, &n); err != nil {
			return nil, err
		}
		if n == 0 {
			errs.Add(0, "organizationId", "unknown organization")
		}
	}
	if locationID != nil && *locationID > 0 {
		var n int
		if err := tx.NewRaw("SELECT COUNT(1) FROM locations WHERE id = ? AND organization_id = ?", *locationID, orgID).Scan(ctx, &n); err != nil {
			return nil, err
		}
		if n == 0 {
			errs.Add(rowID, KeyLocation, "location belongs to another organization")
		}
	}
	return errs, nil
}

func positiveOrNil(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	v := *id
	return &v
}

// LoadLookups fills the select options of the ledger page. Locations are limited to
// orgID when it is set.
func LoadLookups(ctx context.Context, db *sqlite.DB, orgID int64) (Lookups, error) {
	var l Lookups
	orgs, err := location.ListOrganizations(ctx, db)
	if err != nil {
		return l, err
	}
	for _, o := range orgs {
		l.Organizations = append(l.Organizations, drafttable.Option{Label: o.Name, Value: o.ID})
	}
	locs, err := location.ListLocations(ctx, db, orgID)
	if err != nil {
		return l, err
	}
	for _, loc := range locs {
		l.Locations = append(l.Locations, drafttable.Option{Label: loc.Name, Value: loc.ID})
	}
	var types []models.PaperType
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&types).OrderExpr("kind ASC, name ASC").Scan(ctx)
	})
	if err != nil {
		return l, err
	}
	for _, t := range types {
		l.PaperTypes = append(l.PaperTypes, drafttable.Option{Label: t.Name, Value: t.ID})
	}
	return l, nil
}
