package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/favorites"
	"github.com/sedna-dashboard/internal/service"
	"github.com/sedna-dashboard/internal/types"
)

const sessionHeader = "X-Session-ID"

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, sess *service.Session)

// withSession resolves the X-Session-ID header before calling h
func (s *Server) withSession(h sessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(sessionHeader))
		if id == "" {
			respondError(w, r, apperrors.NewSessionRequiredError())
			return
		}
		sess, err := s.deps.Sessions.Get(id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		h(w, r, sess)
	}
}

func assetNotFound(id string) error {
	return &types.ServiceError{
		Code:    "ASSET_NOT_FOUND",
		Message: "asset is not in the current market list",
		Details: map[string]interface{}{"assetId": id},
	}
}

// DashboardResponse is the selection and favorites state of a session
type DashboardResponse struct {
	favorites.State
	Full bool `json:"full"` // no more favorites can be added at the current capacity
}

func dashboardResponse(st favorites.State) DashboardResponse {
	return DashboardResponse{State: st, Full: len(st.Favorites) >= st.Capacity}
}

// handleCreateSession handles POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Sessions.Create()
	w.Header().Set(sessionHeader, sess.ID)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": sess.ID,
		"dashboard": dashboardResponse(sess.Favorites.State()),
	})
}

// handleGetDashboard handles GET /api/dashboard
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	respondJSON(w, http.StatusOK, dashboardResponse(sess.Favorites.State()))
}

type selectRequest struct {
	AssetID string          `json:"assetId" validate:"required_without=Name"`
	Name    string          `json:"name" validate:"required_without=AssetID,max=100"`
	Symbol  string          `json:"symbol" validate:"required_with=Name,max=20"`
	Price   decimal.Decimal `json:"price"`
	Image   string          `json:"image" validate:"omitempty,url"`
}

// handleSelectAsset handles PUT /api/dashboard/selection. The body names either
// an asset of the current market list or a full selection.
func (s *Server) handleSelectAsset(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	var req selectRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var sel types.Selection
	if req.AssetID != "" {
		asset, ok := s.deps.Market.FindAsset(req.AssetID)
		if !ok {
			respondError(w, r, assetNotFound(req.AssetID))
			return
		}
		sel = favorites.SelectionFromAsset(asset)
	} else {
		if !req.Price.IsPositive() {
			respondError(w, r, apperrors.NewInvalidParameterError("price", "must be positive"))
			return
		}
		sel = types.Selection{Name: req.Name, Symbol: req.Symbol, Price: req.Price, Image: req.Image}
	}

	respondJSON(w, http.StatusOK, dashboardResponse(sess.Favorites.SelectAsset(sel)))
}

// handleToggleFavorite handles POST /api/dashboard/favorites/{id}/toggle.
// The asset is taken from the current market list, the pinned entry or,
// failing both, the request body.
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	id := mux.Vars(r)["id"]

	// Resolve a complete asset even for a pinned id: a concurrent removal can
	// turn this toggle into an add.
	asset, ok := s.deps.Market.FindAsset(id)
	if !ok {
		if entry, pinned := sess.Favorites.State().Entry(id); pinned {
			asset = favorites.AssetFromEntry(entry)
		} else {
			var err error
			if asset, err = toggleBodyAsset(r, id); err != nil {
				respondError(w, r, err)
				return
			}
		}
	}

	st, outcome := sess.Favorites.ToggleFavorite(asset)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"outcome":   outcome,
		"dashboard": dashboardResponse(st),
	})
}

type toggleAssetRequest struct {
	ID                       string          `json:"id" validate:"omitempty,max=100"`
	Symbol                   string          `json:"symbol" validate:"required,max=20"`
	Name                     string          `json:"name" validate:"required,max=100"`
	Image                    string          `json:"image" validate:"omitempty,url"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
}

func toggleBodyAsset(r *http.Request, id string) (types.Asset, error) {
	var req toggleAssetRequest
	if err := parseJSONBody(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			return types.Asset{}, assetNotFound(id)
		}
		return types.Asset{}, err
	}
	if req.ID != "" && req.ID != id {
		return types.Asset{}, apperrors.NewInvalidParameterError("id", "does not match the path")
	}
	if !req.CurrentPrice.IsPositive() {
		return types.Asset{}, apperrors.NewInvalidParameterError("current_price", "must be positive")
	}
	return types.Asset{
		ID:                       id,
		Symbol:                   req.Symbol,
		Name:                     req.Name,
		Image:                    req.Image,
		CurrentPrice:             req.CurrentPrice,
		PriceChangePercentage24h: req.PriceChangePercentage24h,
	}, nil
}

// handleRemoveFavorite handles DELETE /api/dashboard/favorites/{id}
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	st := sess.Favorites.RemoveFavorite(mux.Vars(r)["id"])
	respondJSON(w, http.StatusOK, dashboardResponse(st))
}

type viewportRequest struct {
	Width int `json:"width" validate:"gte=0,lte=100000"`
}

// handleResize handles PUT /api/dashboard/viewport
func (s *Server) handleResize(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	var req viewportRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboardResponse(sess.Favorites.Resize(req.Width)))
}
