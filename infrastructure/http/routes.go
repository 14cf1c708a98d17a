package http

import (
	"github.com/go-chi/chi/v5"

	exportspage "washdesk/frontend/exports"
	"washdesk/frontend/finance/papers"
	"washdesk/frontend/settings"
	"washdesk/frontend/warehouse/documents"
	"washdesk/frontend/warehouse/nomenclature"
)

// RegisterAPIRoutes registers the JSON REST contract under /api.
func (s *Server) RegisterAPIRoutes(r chi.Router) chi.Router {
	r.Get("/documents", documents.ListDocumentsAPIHandler(s.DB, s.QueryCache, s.Options.PageSize))
	r.Post("/documents", documents.SaveDocumentAPIHandler(s.DB, s.Audit, s.QueryCache, false, false))
	r.Post("/documents/send", documents.SaveDocumentAPIHandler(s.DB, s.Audit, s.QueryCache, false, true))
	r.Get("/documents/{id}", documents.GetDocumentAPIHandler(s.DB, s.QueryCache))
	r.Put("/documents/{id}", documents.SaveDocumentAPIHandler(s.DB, s.Audit, s.QueryCache, true, false))
	r.Put("/documents/{id}/send", documents.SaveDocumentAPIHandler(s.DB, s.Audit, s.QueryCache, true, true))

	r.Get("/manager-papers", papers.ListPapersAPIHandler(s.DB, s.QueryCache, s.Options.PageSize))
	r.Post("/manager-papers", papers.CreatePaperAPIHandler(s.DB, s.Audit, s.QueryCache))
	r.Delete("/manager-papers", papers.DeletePapersAPIHandler(s.DB, s.Audit, s.QueryCache))
	r.Get("/manager-papers/summary", papers.SummaryAPIHandler(s.DB, s.QueryCache))
	r.Patch("/manager-papers/{id}", papers.PatchPaperAPIHandler(s.DB, s.Audit, s.QueryCache))

	r.Get("/options/{list}", nomenclature.OptionsAPIHandler(s.DB, s.QueryCache))
	r.Get("/stock", nomenclature.StockAPIHandler(s.DB, s.QueryCache))
	return r
}

// RegisterDeskRoutes registers the server-rendered admin pages under /desk.
func (s *Server) RegisterDeskRoutes(r chi.Router) chi.Router {
	s.RegisterDocumentRoutes(r)
	s.RegisterCatalogRoutes(r)
	s.RegisterLedgerRoutes(r)
	s.RegisterExportRoutes(r)

	tables := append(documents.Tables(), papers.Tables()...)
	r.Get("/settings/columns", settings.ColumnsPageQueryHandler(s.DB, s.ColumnPrefs, tables))
	r.Post("/settings/columns", settings.ColumnsCommandHandler(s.DB, s.Audit, s.ColumnPrefs, tables))
	return r
}

func (s *Server) RegisterDocumentRoutes(r chi.Router) {
	r.Get("/documents", documents.DocumentsListPageQueryHandler(s.DB, s.Options.PageSize))
	r.Get("/documents/new", documents.NewDocumentPageQueryHandler(s.DB, s.ColumnPrefs))
	r.Post("/documents/draft", documents.DocumentDraftCommandHandler(s.DB, s.Audit, s.QueryCache, s.ColumnPrefs))
	r.Get("/documents/{id}", documents.DocumentPageQueryHandler(s.DB, s.ColumnPrefs))
	r.Get("/documents/{id}/print.pdf", documents.PrintDocumentQueryHandler(s.DB))
}

func (s *Server) RegisterCatalogRoutes(r chi.Router) {
	r.Get("/nomenclature", nomenclature.NomenclaturePageQueryHandler(s.DB))
	r.Post("/nomenclature/import", nomenclature.NomenclatureImportCommandHandler(s.DB, s.Audit, s.QueryCache))
	r.Post("/nomenclature/delete", nomenclature.NomenclatureDeleteCommandHandler(s.DB, s.Audit, s.QueryCache))
	r.Get("/stock", nomenclature.StockPageQueryHandler(s.DB))
}

func (s *Server) RegisterLedgerRoutes(r chi.Router) {
	r.Get("/papers", papers.LedgerPageQueryHandler(s.DB, s.ColumnPrefs, s.Options.PageSize))
	r.Post("/papers", papers.CreatePaperCommandHandler(s.DB, s.Audit, s.QueryCache))
	r.Post("/papers/rows", papers.LedgerRowsCommandHandler(s.DB, s.Audit, s.QueryCache, s.ColumnPrefs, s.Options.PageSize))
}

func (s *Server) RegisterExportRoutes(r chi.Router) {
	r.Get("/exports", exportspage.ExportsPageQueryHandler(s.DB))
	r.Get("/exports/documents.csv", exportspage.DocumentsCSVHandler(s.DB))
	r.Get("/exports/papers.xlsx", exportspage.PapersXLSXHandler(s.DB))
}
