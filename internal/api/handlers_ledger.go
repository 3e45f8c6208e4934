package api

import (
	"net/http"
	"strings"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/service"
)

// handleListTransactions handles GET /api/transactions?type=&q=&format=
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if err := validateParam("type", query.Get("type"), "tx_filter"); err != nil {
		respondError(w, r, err)
		return
	}
	filter, _ := service.ParseTxFilter(query.Get("type"))
	txs := s.deps.Ledger.List(filter, strings.TrimSpace(query.Get("q")))

	switch format := strings.ToLower(query.Get("format")); format {
	case "", "json":
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"filter":       filter,
			"transactions": txs,
		})
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := s.deps.Ledger.ExportCSV(w, txs); err != nil {
			// headers are gone, all that is left is to log it
			logging.FromContext(r.Context()).WithError(err).Error("CSV export failed")
		}
	default:
		respondError(w, r, apperrors.NewInvalidParameterError("format", "must be json or csv"))
	}
}

// handleGetOrderBook handles GET /api/orderbook
func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Ledger.OrderBook())
}
