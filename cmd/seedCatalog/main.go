package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/uptrace/bun"

	"washdesk/frontend/warehouse/nomenclature"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/sqlite"
)

// Default catalog rows. Names are unique, so reruns leave existing rows alone.
var (
	defaultOrganization = "Washdesk"
	defaultLocation     = "Main site"
	defaultWarehouses   = []string{"Main warehouse", "Wash bay"}
	defaultWorkers      = []string{"Shift manager"}
)

func main() {
	migrationsDir, err := resolveMigrationsDir()
	if err != nil {
		log.Fatalf("resolve migrations dir: %v", err)
	}

	defaultDBPath := filepath.Join(filepath.Dir(filepath.Dir(filepath.Dir(migrationsDir))), "washdesk.db")
	dbPath := getenv("SQLITE_PATH", defaultDBPath)

	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := sqlite.ApplyMigrations(ctx, db, migrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	if err := seedCatalog(ctx, db); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}
	fmt.Println("seeded organizations, warehouses and workers")

	if csvPath := os.Getenv("CATALOG_CSV"); csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			log.Fatalf("open catalog csv: %v", err)
		}
		defer f.Close()
		summary, err := nomenclature.ImportCSV(ctx, db, audit.NewService(), 0, f)
		if err != nil {
			log.Fatalf("import nomenclature: %v", err)
		}
		fmt.Printf("imported nomenclature: %d inserted, %d updated, %d errors\n", summary.Inserted, summary.Updated, summary.Errors)
	}
}

func seedCatalog(ctx context.Context, db *sqlite.DB) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO organizations (name) VALUES (?)`, defaultOrganization); err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}
		var orgID int64
		if err := tx.NewRaw(`SELECT id FROM organizations WHERE name = ?`, defaultOrganization).Scan(ctx, &orgID); err != nil {
			return fmt.Errorf("load organization: %w", err)
		}

		var locationID int64
		err := tx.NewRaw(`SELECT id FROM locations WHERE organization_id = ? AND name = ?`, orgID, defaultLocation).Scan(ctx, &locationID)
		switch {
		case sqlite.IsNoRows(err):
			res, err := tx.ExecContext(ctx, `INSERT INTO locations (organization_id, name) VALUES (?, ?)`, orgID, defaultLocation)
			if err != nil {
				return fmt.Errorf("insert location: %w", err)
			}
			if locationID, err = res.LastInsertId(); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("load location: %w", err)
		}

		for _, name := range defaultWarehouses {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO warehouses (location_id, name) VALUES (?, ?)`, locationID, name); err != nil {
				return fmt.Errorf("insert warehouse %q: %w", name, err)
			}
		}
		for _, name := range defaultWorkers {
			if _, err := tx.ExecContext(ctx, `INSERT INTO workers (name) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM workers WHERE name = ?)`, name, name); err != nil {
				return fmt.Errorf("insert worker %q: %w", name, err)
			}
		}
		return nil
	})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func resolveMigrationsDir() (string, error) {
	candidates := []string{
		filepath.Join("infrastructure", "sqlite", "migrations"),
		filepath.Join("..", "..", "infrastructure", "sqlite", "migrations"),
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations"))
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		tried = append(tried, absPath)

		info, err := os.Stat(absPath)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("migrations dir not found; tried: %s", strings.Join(tried, ", "))
}
