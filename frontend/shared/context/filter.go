package context

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Filter is the list state encoded in a page or API URL.
type Filter struct {
	DateStart      time.Time
	DateEnd        time.Time
	OrganizationID int64
	LocationID     int64
	PaperTypeID    int64
	WarehouseID    int64
	Kind           string
	Page           int
	Size           int
}

// ParseFilter reads a Filter from query parameters. Malformed values are ignored.
func ParseFilter(q url.Values, defaultSize int) Filter {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	f := Filter{
		DateStart:      parseDay(q.Get("dateStart")),
		DateEnd:        parseDay(q.Get("dateEnd")),
		OrganizationID: parseID(q.Get("organizationId")),
		LocationID:     parseID(q.Get("locationId")),
		PaperTypeID:    parseID(q.Get("paperTypeId")),
		WarehouseID:    parseID(q.Get("warehouseId")),
		Kind:           strings.TrimSpace(q.Get("kind")),
		Page:           parsePositive(q.Get("page"), 1),
		Size:           parsePositive(q.Get("size"), defaultSize),
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	if !f.DateStart.IsZero() && !f.DateEnd.IsZero() && f.DateStart.After(f.DateEnd) {
		f.DateStart, f.DateEnd = f.DateEnd, f.DateStart
	}
	return f
}

// Values encodes the filter back into query parameters, leaving out unset fields.
func (f Filter) Values() url.Values {
	q := url.Values{}
	if !f.DateStart.IsZero() {
		q.Set("dateStart", f.DateStart.Format("2006-01-02"))
	}
	if !f.DateEnd.IsZero() {
		q.Set("dateEnd", f.DateEnd.Format("2006-01-02"))
	}
	setID(q, "organizationId", f.OrganizationID)
	setID(q, "locationId", f.LocationID)
	setID(q, "paperTypeId", f.PaperTypeID)
	setID(q, "warehouseId", f.WarehouseID)
	if f.Kind != "" {
		q.Set("kind", f.Kind)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}
	return q
}

// WithPage returns a copy pointing at another page.
func (f Filter) WithPage(page int) Filter {
	if page < 1 {
		page = 1
	}
	f.Page = page
	return f
}

// Offset is the row offset of the current page.
func (f Filter) Offset() int {
	if f.Page < 1 || f.Size < 1 {
		return 0
	}
	return (f.Page - 1) * f.Size
}

// PageCount returns how many pages total rows span, at least 1.
func (f Filter) PageCount(total int) int {
	if f.Size < 1 || total <= 0 {
		return 1
	}
	return (total + f.Size - 1) / f.Size
}

func parseDay(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func setID(q url.Values, key string, id int64) {
	if id > 0 {
		q.Set(key, strconv.FormatInt(id, 10))
	}
}
