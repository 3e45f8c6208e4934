package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/service"
	"github.com/sedna-dashboard/internal/types"
)

// MarketResponse is the body of GET /api/market
type MarketResponse struct {
	Page      int                `json:"page"`
	Status    service.LoadStatus `json:"status"`
	Source    types.MarketSource `json:"source,omitempty"`
	FetchedAt *time.Time         `json:"fetchedAt,omitempty"`
	Query     string             `json:"query,omitempty"`
	Assets    []types.Asset      `json:"assets"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Market.Snapshot()

	body := map[string]interface{}{
		"status":  "healthy",
		"service": "sedna-dashboard",
		"market": map[string]interface{}{
			"status": s.deps.Market.Status(),
			"source": snap.Source,
			"assets": len(snap.Assets),
			"loads":  s.deps.Market.LoadStats(),
		},
		"sessions": s.deps.Sessions.Count(),
	}
	if s.deps.Upstream != nil {
		body["upstream"] = map[string]interface{}{
			"provider": s.deps.Upstream.Name(),
			"breaker":  s.deps.Upstream.BreakerStats(),
		}
	}
	if s.deps.Budget != nil {
		usage, err := s.deps.Budget.Usage(r.Context())
		if err != nil {
			logging.FromContext(r.Context()).WithError(err).Warn("Failed to read shared call budget")
			body["budget"] = map[string]interface{}{"error": "unavailable"}
		} else {
			body["budget"] = usage
		}
	}

	respondJSON(w, http.StatusOK, body)
}

// handleGetMarket handles GET /api/market?page=&q=. A page other than the one
// currently shown is fetched and becomes the new snapshot.
func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Market.Snapshot()

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			respondError(w, r, apperrors.NewInvalidParameterError("page", "must be a positive integer"))
			return
		}
		if page != snap.Page {
			snap = s.deps.Market.Fetch(r.Context(), page)
		}
	}

	resp := marketResponse(snap, s.deps.Market.Status())
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		resp.Query = q
		resp.Assets = s.deps.Market.Search(q)
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleRefreshMarket handles POST /api/market/refresh
func (s *Server) handleRefreshMarket(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Market.Refresh(r.Context())
	respondJSON(w, http.StatusOK, marketResponse(snap, s.deps.Market.Status()))
}

func marketResponse(snap types.MarketSnapshot, status service.LoadStatus) MarketResponse {
	resp := MarketResponse{
		Page:   snap.Page,
		Status: status,
		Source: snap.Source,
		Assets: snap.Assets,
	}
	if !snap.FetchedAt.IsZero() {
		fetched := snap.FetchedAt
		resp.FetchedAt = &fetched
	}
	if resp.Assets == nil {
		resp.Assets = []types.Asset{}
	}
	return resp
}
