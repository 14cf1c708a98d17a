package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Document kinds.
const (
	KindReceipt   = "receipt"
	KindMoving    = "moving"
	KindInventory = "inventory"
)

// Document statuses.
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
)

// Paper type kinds.
const (
	PaperReceipt     = "receipt"
	PaperExpenditure = "expenditure"
)

// Organization owns one or more car-wash locations.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:o"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
}

// Location is a single car-wash site.
type Location struct {
	bun.BaseModel `bun:"table:locations,alias:l"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	OrganizationID int64     `bun:"organization_id,notnull" json:"organizationId"`
	Name           string    `bun:"name,notnull" json:"name"`
	Address        string    `bun:"address,notnull" json:"address"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
}

// Warehouse stores consumables for a location.
type Warehouse struct {
	bun.BaseModel `bun:"table:warehouses,alias:w"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	LocationID *int64    `bun:"location_id" json:"locationId,omitempty"`
	Name       string    `bun:"name,notnull" json:"name"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
}

// Worker is a person that can be responsible for a document.
type Worker struct {
	bun.BaseModel `bun:"table:workers,alias:wk"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
}

// Nomenclature is the product catalog entry referenced by document lines.
type Nomenclature struct {
	bun.BaseModel `bun:"table:nomenclature,alias:n"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	SKU       string    `bun:"sku,notnull,unique" json:"sku"`
	Name      string    `bun:"name,notnull" json:"name"`
	Unit      string    `bun:"unit,notnull" json:"unit"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"-"`
}

// StockBalance is the on-hand quantity of a product in a warehouse.
type StockBalance struct {
	bun.BaseModel `bun:"table:stock_balances,alias:sb"`

	WarehouseID    int64     `bun:"warehouse_id,pk" json:"warehouseId"`
	NomenclatureID int64     `bun:"nomenclature_id,pk" json:"nomenclatureId"`
	Quantity       float64   `bun:"quantity,notnull" json:"quantity"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// Document is a warehouse document header.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	PublicID      string     `bun:"public_id,notnull,unique" json:"publicId"`
	Kind          string     `bun:"kind,notnull" json:"kind"`
	Status        string     `bun:"status,notnull" json:"status"`
	WarehouseID   int64      `bun:"warehouse_id,notnull" json:"warehouseId"`
	ResponsibleID int64      `bun:"responsible_id,notnull" json:"responsibleId"`
	CarryingAt    time.Time  `bun:"carrying_at,notnull" json:"carryingAt"`
	SentAt        *time.Time `bun:"sent_at" json:"sentAt,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// DocumentLine is one line item of a warehouse document.
type DocumentLine struct {
	bun.BaseModel `bun:"table:document_lines,alias:dl"`

	ID                  int64    `bun:"id,pk,autoincrement" json:"id"`
	DocumentID          int64    `bun:"document_id,notnull" json:"documentId"`
	NomenclatureID      int64    `bun:"nomenclature_id,notnull" json:"nomenclatureId"`
	Quantity            float64  `bun:"quantity,notnull" json:"quantity"`
	Comment             string   `bun:"comment,notnull" json:"comment"`
	WarehouseReceiverID *int64   `bun:"warehouse_receiver_id" json:"warehouseReceirId,omitempty"`
	OldQuantity         *float64 `bun:"old_quantity" json:"oldQuantity,omitempty"`
	Deviation           *float64 `bun:"deviation" json:"deviation,omitempty"`
}

// PaperType classifies a ledger row as income or expense.
type PaperType struct {
	bun.BaseModel `bun:"table:paper_types,alias:pt"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
	Kind string `bun:"kind,notnull" json:"kind"`
}

// ManagerPaper is one finance ledger row.
type ManagerPaper struct {
	bun.BaseModel `bun:"table:manager_papers,alias:mp"`

	ID             int64           `bun:"id,pk,autoincrement" json:"id"`
	PaperTypeID    int64           `bun:"paper_type_id,notnull" json:"paperTypeId"`
	OrganizationID int64           `bun:"organization_id,notnull" json:"organizationId"`
	LocationID     *int64          `bun:"location_id" json:"locationId,omitempty"`
	EventDate      string          `bun:"event_date,notnull" json:"eventDate"` // yyyy-mm-dd
	Amount         decimal.Decimal `bun:"amount,type:text,notnull" json:"amount"`
	Comment        string          `bun:"comment,notnull" json:"comment"`
	OperatorID     int64           `bun:"operator_id,notnull" json:"operatorId"`
	CreatedAt      time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time       `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// TablePreference stores column visibility for a table.
type TablePreference struct {
	bun.BaseModel `bun:"table:table_preferences,alias:tp"`

	TableKey  string    `bun:"table_key,pk"`
	ColumnKey string    `bun:"column_key,pk"`
	Visible   bool      `bun:"visible,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	OperatorID int64     `bun:"operator_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
