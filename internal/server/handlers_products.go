package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/warepick/warepick/internal/apperr"
)

func (s *Server) requireCatalog(w http.ResponseWriter) bool {
	if s.catalog == nil || !s.catalog.Loaded() {
		s.writeError(w, apperr.CatalogNotLoaded())
		return false
	}
	return true
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": s.catalog.Categories(),
	})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	main := r.URL.Query().Get("main_category")
	sub := r.URL.Query().Get("subcategory")
	products := s.catalog.Products(main, sub)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, apperr.Validation("Search query 'q' is required"))
		return
	}
	products := s.catalog.Search(query)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
		"query":    query,
	})
}

// handleLookupProduct resolves a scanned code against the catalog with
// the same substring rule the picker session uses.
func (s *Server) handleLookupProduct(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	code := chi.URLParam(r, "code")
	product := s.catalog.FindByScannedUPC(code)
	if product == nil {
		s.writeError(w, apperr.ProductNotFound(code))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product": product,
	})
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalog(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats": s.catalog.GetStats(),
	})
}
