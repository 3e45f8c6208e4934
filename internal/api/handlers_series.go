package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/favorites"
	"github.com/sedna-dashboard/internal/series"
	"github.com/sedna-dashboard/internal/types"
	"github.com/sedna-dashboard/internal/validation"
)

// SeriesResponse is the body of the series endpoints
type SeriesResponse struct {
	Range   series.Range        `json:"range"`
	Anchor  float64             `json:"anchor"`
	AnchorB *float64            `json:"anchorB,omitempty"`
	Points  []types.SeriesPoint `json:"points"`
}

// maxAnchor keeps the widest random walk well inside float64 range
const maxAnchor = 1e15

func parseRangeParam(r *http.Request) (series.Range, error) {
	raw := r.URL.Query().Get("range")
	if raw == "" {
		return series.Range1M, nil
	}
	if err := validation.Get().Var(raw, "series_range"); err != nil {
		return "", &types.ServiceError{
			Code:    "INVALID_RANGE",
			Message: fmt.Sprintf("unknown range %q", raw),
			Details: map[string]interface{}{"range": raw, "allowed": series.Ranges},
		}
	}
	return series.ParseRange(raw)
}

// parseAnchorParam reads a positive finite price from the query. ok is false
// when the parameter is absent.
func parseAnchorParam(r *http.Request, name string) (value float64, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, perr := strconv.ParseFloat(raw, 64)
	if perr != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false, apperrors.NewInvalidParameterError(name, "must be a positive number")
	}
	if v > maxAnchor {
		return 0, false, apperrors.NewInvalidParameterError(name, "must not exceed 1e15")
	}
	return v, true, nil
}

// selectionPrice is the default anchor: the session's selection when a valid
// session header is sent, the default selection otherwise
func (s *Server) selectionPrice(r *http.Request) float64 {
	sel := favorites.DefaultSelection()
	if id := r.Header.Get(sessionHeader); id != "" {
		if sess, err := s.deps.Sessions.Get(id); err == nil {
			sel = sess.Favorites.State().Selection
		}
	}
	return sel.Price.InexactFloat64()
}

// handleGetSeries handles GET /api/series?range=&anchor=
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRangeParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	anchor, ok, err := parseAnchorParam(r, "anchor")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		anchor = s.selectionPrice(r)
	}

	respondJSON(w, http.StatusOK, SeriesResponse{
		Range:  rng,
		Anchor: anchor,
		Points: s.deps.Series.Generate(anchor, rng),
	})
}

// handleGetDualSeries handles GET /api/series/dual?range=&a=&b=
func (s *Server) handleGetDualSeries(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRangeParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var anchors [2]float64
	for i, name := range []string{"a", "b"} {
		v, ok, err := parseAnchorParam(r, name)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if !ok {
			respondError(w, r, apperrors.NewInvalidParameterError(name, "is required"))
			return
		}
		anchors[i] = v
	}

	respondJSON(w, http.StatusOK, SeriesResponse{
		Range:   rng,
		Anchor:  anchors[0],
		AnchorB: &anchors[1],
		Points:  s.deps.Series.GenerateDual(rng, anchors[0], anchors[1]),
	})
}

// handleGetFlow handles GET /api/series/flow
func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bars": s.deps.Series.GenerateFlow(),
	})
}
