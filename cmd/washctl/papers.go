package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"washdesk/frontend/finance/papers"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
)

var listOpts struct {
	organization int64
	location     int64
	paperType    int64
	from, to     string
	page, size   int
}

var patchFields []string

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List and edit finance ledger rows",
}

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of ledger rows and the filter totals",
	Args:  cobra.NoArgs,
	RunE:  runPapersList,
}

var papersPatchCmd = &cobra.Command{
	Use:   "patch ID --field key=value...",
	Short: "Change fields of one ledger row",
	Long: `Sends only the given fields. Keys: eventDate, paperTypeId, locationId,
amount, comment. An empty paperTypeId or locationId value clears it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPapersPatch,
}

var papersDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete ledger rows",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPapersDelete,
}

func init() {
	f := papersListCmd.Flags()
	f.Int64Var(&listOpts.organization, "org", 0, "organization id")
	f.Int64Var(&listOpts.location, "location", 0, "location id")
	f.Int64Var(&listOpts.paperType, "type", 0, "paper type id")
	f.StringVar(&listOpts.from, "from", "", "first day, yyyy-mm-dd")
	f.StringVar(&listOpts.to, "to", "", "last day, yyyy-mm-dd")
	f.IntVar(&listOpts.page, "page", 1, "page number")
	f.IntVar(&listOpts.size, "size", sharedcontext.DefaultPageSize, "rows per page")

	papersPatchCmd.Flags().StringArrayVar(&patchFields, "field", nil, "key=value, repeatable")
	_ = papersPatchCmd.MarkFlagRequired("field")

	papersCmd.AddCommand(papersListCmd)
	papersCmd.AddCommand(papersPatchCmd)
	papersCmd.AddCommand(papersDeleteCmd)
}

func listFilter() (sharedcontext.Filter, error) {
	f := sharedcontext.Filter{
		OrganizationID: listOpts.organization,
		LocationID:     listOpts.location,
		PaperTypeID:    listOpts.paperType,
		Page:           listOpts.page,
		Size:           listOpts.size,
	}
	var err error
	if f.DateStart, err = drafttable.ParseDate(listOpts.from); err != nil {
		return f, fmt.Errorf("--from: %w", err)
	}
	if f.DateEnd, err = drafttable.ParseDate(listOpts.to); err != nil {
		return f, fmt.Errorf("--to: %w", err)
	}
	return f, nil
}

func runPapersList(cmd *cobra.Command, _ []string) error {
	f, err := listFilter()
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	res, err := client.ListPapers(cmd.Context(), f)
	if err != nil {
		return err
	}
	sum, err := client.PaperSummary(cmd.Context(), f)
	if err != nil {
		return err
	}
	return printPapers(cmd.OutOrStdout(), res, sum)
}

func printPapers(w io.Writer, res papers.ListResult, sum papers.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tLOCATION\tAMOUNT\tCOMMENT")
	for _, p := range res.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.EventDate, p.PaperTypeName, p.LocationName, p.Amount.StringFixed(2), p.Comment)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "page %d, %d rows total\n", res.Page, res.Total)
	fmt.Fprintf(w, "receipts %s, expenditures %s, balance %s\n", sum.Receipts.StringFixed(2), sum.Expenditures.StringFixed(2), sum.Balance.StringFixed(2))
	return nil
}

// buildPatch parses key=value pairs by the ledger column kinds.
func buildPatch(pairs []string) (drafttable.Patch, error) {
	cols := papers.LedgerColumns(papers.Lookups{})
	p := drafttable.Patch{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--field %q: want key=value", pair)
		}
		col, found := cols.Find(key)
		if !found {
			return nil, fmt.Errorf("--field %q: unknown key, one of %s", pair, strings.Join(cols.Keys(), ", "))
		}
		v, err := drafttable.ParseInput(col, raw)
		if err != nil {
			return nil, fmt.Errorf("--field %s: %w", key, err)
		}
		p[key] = v
	}
	return p, nil
}

func runPapersPatch(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid row id %q", args[0])
	}
	patch, err := buildPatch(patchFields)
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	row, err := client.PatchPaper(cmd.Context(), id, patch)
	if err != nil {
		var fields drafttable.ValidationErrors
		if errors.As(err, &fields) {
			printFieldErrors(cmd.ErrOrStderr(), fields)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "row %d: %s %s %s\n", row.ID, row.EventDate, row.PaperTypeName, row.Amount.StringFixed(2))
	return nil
}

func runPapersDelete(cmd *cobra.Command, args []string) error {
	ids := drafttable.ParseRowIDs(args)
	if len(ids) != len(args) {
		return fmt.Errorf("row ids must be positive integers")
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	n, err := client.DeletePapers(cmd.Context(), ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows\n", n)
	return nil
}
