package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/warehouse/nomenclature"
	"washdesk/models"
)

var pushOpts struct {
	kind        string
	warehouse   int64
	receiver    int64
	responsible int64
	date        string
	id          int64
	send        bool
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Build and submit warehouse documents",
}

var documentsPushCmd = &cobra.Command{
	Use:   "push LINES.csv",
	Short: "Submit a document built from a CSV of lines",
	Long: `Reads lines from a CSV file with a header row. Recognized columns:

  sku or nomenclatureId   product, by SKU or numeric id (required)
  quantity                counted or moved quantity (required)
  comment                 free text
  oldQuantity             inventory only, overrides the on-hand baseline

Every line is validated before anything is sent. Field errors are printed per
line and nothing is posted.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsPush,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

func init() {
	f := documentsPushCmd.Flags()
	f.StringVar(&pushOpts.kind, "kind", models.KindReceipt, "document kind: receipt, moving or inventory")
	f.Int64Var(&pushOpts.warehouse, "warehouse", 0, "warehouse id")
	f.Int64Var(&pushOpts.receiver, "receiver", 0, "destination warehouse id of a move")
	f.Int64Var(&pushOpts.responsible, "responsible", 0, "responsible worker id")
	f.StringVar(&pushOpts.date, "date", "", "document date, yyyy-mm-dd (default today)")
	f.Int64Var(&pushOpts.id, "id", 0, "update this draft instead of creating one")
	f.BoolVar(&pushOpts.send, "send", false, "send the document and apply it to stock")
	_ = documentsPushCmd.MarkFlagRequired("warehouse")

	documentsCmd.AddCommand(documentsPushCmd)
	documentsCmd.AddCommand(documentsShowCmd)
}

// csvLine is one data row of a lines file. Line is its 1-based position.
type csvLine struct {
	Line        int
	Product     string
	Quantity    string
	Comment     string
	OldQuantity string
}

func readLines(r io.Reader) ([]csvLine, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("lines file is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	productCol, ok := cols["sku"]
	if !ok {
		productCol, ok = cols["nomenclatureid"]
	}
	if !ok {
		return nil, errors.New("header needs a sku or nomenclatureId column")
	}
	qtyCol, ok := cols["quantity"]
	if !ok {
		return nil, errors.New("header needs a quantity column")
	}
	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var lines []csvLine
	for n := 1; ; n++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", n, err)
		}
		l := csvLine{Line: n, Comment: cell(rec, "comment"), OldQuantity: cell(rec, "oldquantity")}
		if productCol < len(rec) {
			l.Product = strings.TrimSpace(rec[productCol])
		}
		if qtyCol < len(rec) {
			l.Quantity = strings.TrimSpace(rec[qtyCol])
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// buildDraft fills a document store with one selected row per line. Row ids are
// line numbers, so field errors point back at the file.
func buildDraft(kind string, products []nomenclature.OptionItem, baseline drafttable.BaselineFunc, lines []csvLine) (*drafttable.Store, drafttable.ValidationErrors) {
	bySKU := make(map[string]int64, len(products))
	for _, p := range products {
		sku, _, _ := strings.Cut(p.Label, " - ")
		bySKU[strings.ToUpper(strings.TrimSpace(sku))] = p.ID
	}

	store := drafttable.NewDocumentStore(kind, nomenclature.ToDraftOptions(products), baseline)
	rows := make([]drafttable.DraftRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, drafttable.DraftRow{ID: int64(l.Line), Selected: true})
	}
	store.Seed(rows)

	ed := drafttable.NewEditor(drafttable.EditGlobal)
	var errs drafttable.ValidationErrors
	apply := func(id int64, key, raw string) {
		if err := ed.Apply(store, id, key, raw); err != nil {
			var fe *drafttable.FieldError
			if errors.As(err, &fe) {
				errs = append(errs, fe)
				return
			}
			errs.Add(id, key, err.Error())
		}
	}
	for _, l := range lines {
		id := int64(l.Line)
		product := l.Product
		if _, err := strconv.ParseInt(product, 10, 64); err != nil && product != "" {
			pid, ok := bySKU[strings.ToUpper(product)]
			if !ok {
				errs.Add(id, drafttable.KeyNomenclature, "unknown product "+product)
				continue
			}
			product = strconv.FormatInt(pid, 10)
		}
		apply(id, drafttable.KeyNomenclature, product)
		apply(id, drafttable.KeyQuantity, l.Quantity)
		if l.Comment != "" {
			apply(id, drafttable.KeyComment, l.Comment)
		}
		if kind == models.KindInventory && l.OldQuantity != "" {
			apply(id, drafttable.KeyOldQuantity, l.OldQuantity)
		}
	}
	return store, errs
}

// mergeFieldErrors appends the errors of more whose field has none in errs yet.
func mergeFieldErrors(errs, more drafttable.ValidationErrors) drafttable.ValidationErrors {
	seen := errs.Fields()
	for _, fe := range more {
		if _, ok := seen[drafttable.FieldKey(fe.RowID, fe.Key)]; !ok {
			errs = append(errs, fe)
		}
	}
	return errs
}

func printFieldErrors(w io.Writer, errs drafttable.ValidationErrors) {
	for _, fe := range errs {
		if fe.RowID == 0 {
			fmt.Fprintf(w, "document: %s: %s\n", fe.Key, fe.Message)
			continue
		}
		fmt.Fprintf(w, "line %d: %s: %s\n", fe.RowID, fe.Key, fe.Message)
	}
}

func runDocumentsPush(cmd *cobra.Command, args []string) error {
	if !drafttable.ValidKind(pushOpts.kind) {
		return fmt.Errorf("unknown document kind %q", pushOpts.kind)
	}
	h := drafttable.DocumentHeader{
		Kind:          pushOpts.kind,
		WarehouseID:   pushOpts.warehouse,
		ResponsibleID: pushOpts.responsible,
		CarryingAt:    time.Now(),
	}
	if pushOpts.kind == models.KindMoving {
		h.ReceiverID = pushOpts.receiver
	}
	if pushOpts.date != "" {
		d, err := drafttable.ParseDate(pushOpts.date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		h.CarryingAt = d
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	lines, err := readLines(f)
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	products, err := client.Options(ctx, "nomenclature")
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	var baseline drafttable.BaselineFunc
	if pushOpts.kind == models.KindInventory {
		if baseline, err = stockBaseline(ctx, client.Stock, pushOpts.warehouse); err != nil {
			return fmt.Errorf("load stock: %w", err)
		}
	}

	store, errs := buildDraft(pushOpts.kind, products, baseline, lines)
	payload, verrs := drafttable.BuildDocumentPayload(h, store)
	errs = mergeFieldErrors(errs, verrs)
	if len(errs) > 0 {
		printFieldErrors(cmd.ErrOrStderr(), errs)
		return fmt.Errorf("%d field errors, nothing was sent", len(errs))
	}

	var doc models.Document
	switch {
	case pushOpts.send:
		doc, err = client.SendDocument(ctx, pushOpts.id, payload)
	case pushOpts.id > 0:
		doc, err = client.UpdateDocument(ctx, pushOpts.id, payload)
	default:
		doc, err = client.CreateDocument(ctx, payload)
	}
	if err != nil {
		var fields drafttable.ValidationErrors
		if errors.As(err, &fields) {
			// Backend row keys are 1-based payload positions, which match selected lines.
			printFieldErrors(cmd.ErrOrStderr(), remapToLines(fields, store.Selected()))
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "document %d (%s) %s with %d lines\n", doc.ID, doc.PublicID, doc.Status, len(payload.Details))
	return nil
}

func remapToLines(errs drafttable.ValidationErrors, selected []drafttable.DraftRow) drafttable.ValidationErrors {
	out := make(drafttable.ValidationErrors, 0, len(errs))
	for _, fe := range errs {
		id := fe.RowID
		if id > 0 && int(id) <= len(selected) {
			id = selected[id-1].ID
		}
		out.Add(id, fe.Key, fe.Message)
	}
	return out
}

func stockBaseline(ctx context.Context, load func(context.Context, int64) ([]nomenclature.StockRow, error), warehouseID int64) (drafttable.BaselineFunc, error) {
	rows, err := load(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	onHand := make(map[int64]float64, len(rows))
	for _, r := range rows {
		onHand[r.NomenclatureID] = r.Quantity
	}
	return func(id int64) (float64, bool) {
		q, ok := onHand[id]
		return q, ok
	}, nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid document id %q", args[0])
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	d, err := client.GetDocument(cmd.Context(), id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s #%d, warehouse %d, %s\n", d.Document.Kind, d.Document.Status, d.Document.ID, d.Document.WarehouseID, d.Document.CarryingAt.Format(drafttable.DateLayout))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tQUANTITY\tCOMMENT")
	for i, l := range d.Details {
		fmt.Fprintf(tw, "%d\t%d\t%g\t%s\n", i+1, l.NomenclatureID, l.Quantity, l.Comment)
	}
	return tw.Flush()
}
