package settings

import (
	"context"
	"sort"

	"github.com/uptrace/bun"

	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

// LoadColumnVisibility reads the stored visibility of a table. Columns without a
// stored preference are absent from the map.
func LoadColumnVisibility(ctx context.Context, db *sqlite.DB, table string) (map[string]bool, error) {
	var prefs []models.TablePreference
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&prefs).Where("table_key = ?", table).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		out[p.ColumnKey] = p.Visible
	}
	return out, nil
}

// SaveColumnVisibility upserts every column of visible and refreshes the cache.
func SaveColumnVisibility(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, pc *cache.ColumnPrefsCache, operatorID int64, table string, visible map[string]bool) error {
	keys := make([]string, 0, len(visible))
	for k := range visible {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO table_preferences (table_key, column_key, visible, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(table_key, column_key) DO UPDATE SET
  visible = excluded.visible,
  updated_at = CURRENT_TIMESTAMP`, table, k, visible[k]); err != nil {
				return err
			}
		}
		return auditSvc.Write(ctx, tx, operatorID, "settings.columns", "table_preferences", 0, table, visible)
	})
	if err != nil {
		return err
	}
	if pc != nil {
		pc.Set(table, visible)
	}
	return nil
}

// Visibility returns a predicate for the columns of a table, defaulting to visible.
// Stored preferences are read through the cache.
func Visibility(ctx context.Context, db *sqlite.DB, pc *cache.ColumnPrefsCache, table string) (func(key string) bool, error) {
	prefs, ok := pc.Get(table)
	if !ok {
		var err error
		if prefs, err = LoadColumnVisibility(ctx, db, table); err != nil {
			return nil, err
		}
		pc.Set(table, prefs)
	}
	return func(key string) bool {
		v, ok := prefs[key]
		return !ok || v
	}, nil
}
