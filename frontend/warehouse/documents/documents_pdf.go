package documents

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
	"github.com/uptrace/bun"

	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

// PrintSheet is a document resolved to names for printing.
type PrintSheet struct {
	PublicID    string
	Kind        string
	Status      string
	Warehouse   string
	Receiver    string
	Responsible string
	CarryingAt  time.Time
	Lines       []PrintLine
}

type PrintLine struct {
	SKU         string   `bun:"sku"`
	Name        string   `bun:"name"`
	Unit        string   `bun:"unit"`
	Quantity    float64  `bun:"quantity"`
	OldQuantity *float64 `bun:"old_quantity"`
	Deviation   *float64 `bun:"deviation"`
	Comment     string   `bun:"comment"`
}

func LoadPrintSheet(ctx context.Context, db *sqlite.DB, id int64) (PrintSheet, error) {
	detail, err := LoadDocument(ctx, db, id)
	if err != nil {
		return PrintSheet{}, err
	}
	doc := detail.Document
	sheet := PrintSheet{
		PublicID:   doc.PublicID,
		Kind:       doc.Kind,
		Status:     doc.Status,
		CarryingAt: doc.CarryingAt,
	}
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		name := func(table string, id int64) (string, error) {
			if id <= 0 {
				return "", nil
			}
			var n string
			err := tx.NewRaw("SELECT COALESCE((SELECT name FROM ? WHERE id = ?), '')", bun.Ident(table), id).Scan(ctx, &n)
			return n, err
		}
		var err error
		if sheet.Warehouse, err = name("warehouses", doc.WarehouseID); err != nil {
			return err
		}
		if sheet.Receiver, err = name("warehouses", detail.ReceiverID()); err != nil {
			return err
		}
		if sheet.Responsible, err = name("workers", doc.ResponsibleID); err != nil {
			return err
		}
		return tx.NewRaw(`
SELECT n.sku, n.name, n.unit, dl.quantity, dl.old_quantity, dl.deviation, dl.comment
FROM document_lines dl
JOIN nomenclature n ON n.id = dl.nomenclature_id
WHERE dl.document_id = ?
ORDER BY dl.id ASC`, id).Scan(ctx, &sheet.Lines)
	})
	return sheet, err
}

func renderDocumentPDF(sheet PrintSheet, printedAt time.Time) ([]byte, error) {
	if sheet.PublicID == "" {
		return nil, fmt.Errorf("document has no number")
	}
	barcodePNG, err := renderCode128PNG(sheet.PublicID, 1400, 200)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(KindLabel(sheet.Kind)+" "+sheet.PublicID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, KindLabel(sheet.Kind)+" document", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Date: "+sheet.CarryingAt.Format("02.01.2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Warehouse: "+orDash(sheet.Warehouse), "", 1, "L", false, 0, "")
	if sheet.Kind == models.KindMoving {
		pdf.CellFormat(0, 6, "Destination: "+orDash(sheet.Receiver), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Responsible: "+orDash(sheet.Responsible), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+sheet.Status, "", 1, "L", false, 0, "")

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := "document-barcode-" + sheet.PublicID
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	pageW, _ := pdf.GetPageSize()
	imgW, imgH := 120.0, 18.0
	y := pdf.GetY() + 4
	pdf.ImageOptions(imageName, pageW-imgW-10, 10, imgW, imgH, false, opt, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(pageW-imgW-10, 10+imgH+1)
	pdf.CellFormat(imgW, 4, sheet.PublicID, "", 0, "C", false, 0, "")
	pdf.SetXY(10, y)

	inventory := sheet.Kind == models.KindInventory
	headers := []string{"SKU", "Product", "Unit", "Qty"}
	widths := []float64{28, 72, 16, 22}
	if inventory {
		headers = append(headers, "On hand", "Deviation")
		widths = []float64{24, 56, 14, 20, 20, 22}
	}
	headers = append(headers, "Comment")
	used := 0.0
	for _, w := range widths {
		used += w
	}
	widths = append(widths, pageW-20-used)

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	var total float64
	for _, l := range sheet.Lines {
		cells := []string{l.SKU, l.Name, l.Unit, formatQty(l.Quantity)}
		if inventory {
			cells = append(cells, formatOptQty(l.OldQuantity), formatOptQty(l.Deviation))
		}
		cells = append(cells, l.Comment)
		for i, c := range cells {
			align := "L"
			if i >= 3 && i < len(cells)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
		total += l.Quantity
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, formatQty(total), "1", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, "Printed: "+printedAt.Format("02.01.2006 15:04"), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatOptQty(q *float64) string {
	if q == nil {
		return "-"
	}
	return formatQty(*q)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	normalized := toNRGBA(scaled)
	var barcodePNG bytes.Buffer
	if err := png.Encode(&barcodePNG, normalized); err != nil {
		return nil, err
	}
	return barcodePNG.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
