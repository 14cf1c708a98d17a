package nomenclature

import (
	"washdesk/frontend/shared/html"
	"washdesk/models"
)

type ImportSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}

// StockRow is one on-hand balance joined with its product.
type StockRow struct {
	WarehouseID    int64   `bun:"warehouse_id" json:"warehouseId"`
	NomenclatureID int64   `bun:"nomenclature_id" json:"nomenclatureId"`
	SKU            string  `bun:"sku" json:"sku"`
	Name           string  `bun:"name" json:"name"`
	Unit           string  `bun:"unit" json:"unit"`
	Quantity       float64 `bun:"quantity" json:"quantity"`
	UpdatedAt      string  `bun:"updated_at" json:"updatedAt"`
}

// OptionItem is the JSON shape of a select option list entry.
type OptionItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type PageData struct {
	Page    html.Page
	Records []models.Nomenclature
}

type StockPageData struct {
	Page        html.Page
	WarehouseID int64
	Warehouses  []OptionItem
	Rows        []StockRow
}
