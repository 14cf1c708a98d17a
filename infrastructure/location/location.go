package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

// ListOrganizations returns all organizations by name.
func ListOrganizations(ctx context.Context, db *sqlite.DB) ([]models.Organization, error) {
	orgs := make([]models.Organization, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&orgs).OrderExpr("name ASC, id ASC").Scan(ctx)
	})
	return orgs, err
}

// ListLocations returns locations of an organization, or all of them when orgID is 0.
func ListLocations(ctx context.Context, db *sqlite.DB, orgID int64) ([]models.Location, error) {
	locs := make([]models.Location, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model(&locs).OrderExpr("name ASC, id ASC")
		if orgID > 0 {
			q = q.Where("organization_id = ?", orgID)
		}
		return q.Scan(ctx)
	})
	return locs, err
}

func ListWarehouses(ctx context.Context, db *sqlite.DB) ([]models.Warehouse, error) {
	whs := make([]models.Warehouse, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&whs).OrderExpr("name ASC, id ASC").Scan(ctx)
	})
	return whs, err
}

func ListWorkers(ctx context.Context, db *sqlite.DB) ([]models.Worker, error) {
	workers := make([]models.Worker, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&workers).OrderExpr("name ASC, id ASC").Scan(ctx)
	})
	return workers, err
}

// EnsureOrganization returns the organization with the given name, creating it first
// when needed.
func EnsureOrganization(ctx context.Context, db *sqlite.DB, name string) (models.Organization, error) {
	var org models.Organization
	name = strings.TrimSpace(name)
	if name == "" {
		return org, fmt.Errorf("organization name is required")
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO organizations (name) VALUES (?)`, name); err != nil {
			return err
		}
		return tx.NewSelect().Model(&org).Where("name = ?", name).Limit(1).Scan(ctx)
	})
	return org, err
}

type LocationInput struct {
	OrganizationID int64
	Name           string
	Address        string
}

func CreateLocation(ctx context.Context, db *sqlite.DB, input LocationInput) (models.Location, error) {
	loc := models.Location{
		OrganizationID: input.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Address:        strings.TrimSpace(input.Address),
	}
	if loc.OrganizationID <= 0 {
		return loc, fmt.Errorf("organization is required")
	}
	if loc.Name == "" {
		return loc, fmt.Errorf("location name is required")
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&loc).Exec(ctx)
		return err
	})
	return loc, err
}

// EnsureWarehouse returns the warehouse with the given name, creating it when needed.
func EnsureWarehouse(ctx context.Context, db *sqlite.DB, name string, locationID *int64) (models.Warehouse, error) {
	var wh models.Warehouse
	name = strings.TrimSpace(name)
	if name == "" {
		return wh, fmt.Errorf("warehouse name is required")
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO warehouses (name, location_id) VALUES (?, ?)`, name, locationID); err != nil {
			return err
		}
		return tx.NewSelect().Model(&wh).Where("name = ?", name).Limit(1).Scan(ctx)
	})
	return wh, err
}

func CreateWorker(ctx context.Context, db *sqlite.DB, name string) (models.Worker, error) {
	w := models.Worker{Name: strings.TrimSpace(name)}
	if w.Name == "" {
		return w, fmt.Errorf("worker name is required")
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&w).Exec(ctx)
		return err
	})
	return w, err
}

// LocationBelongsTo reports whether locationID is a location of orgID.
func LocationBelongsTo(ctx context.Context, db *sqlite.DB, orgID, locationID int64) (bool, error) {
	if orgID <= 0 || locationID <= 0 {
		return false, nil
	}
	count := 0
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(1) FROM locations WHERE id = ? AND organization_id = ?`, locationID, orgID).Scan(ctx, &count)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WarehouseExists reports whether a warehouse with id exists.
func WarehouseExists(ctx context.Context, db *sqlite.DB, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	count := 0
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(1) FROM warehouses WHERE id = ?`, id).Scan(ctx, &count)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ResolveOrganizationID keeps current when it still exists and otherwise falls back
// to the first organization by name. It returns nil when there are none.
func ResolveOrganizationID(ctx context.Context, db *sqlite.DB, current *int64) (*int64, error) {
	var id int64
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if current != nil && *current > 0 {
			err := tx.NewRaw(`SELECT id FROM organizations WHERE id = ?`, *current).Scan(ctx, &id)
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}
		return tx.NewRaw(`SELECT id FROM organizations ORDER BY name ASC, id ASC LIMIT 1`).Scan(ctx, &id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// UniquePositiveIDs drops non-positive and repeated ids and sorts the rest.
func UniquePositiveIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
