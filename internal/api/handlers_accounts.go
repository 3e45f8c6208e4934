package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sedna-dashboard/internal/accounts"
	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/overlay"
	"github.com/sedna-dashboard/internal/service"
	"github.com/sedna-dashboard/internal/types"
)

// AccountsResponse is the accounts view of a session
type AccountsResponse struct {
	Accounts []accounts.Account     `json:"accounts"`
	Summary  accounts.BalanceSummary `json:"summary"`
	Menu     overlay.State           `json:"menu"`
}

func accountsResponse(sess *service.Session) AccountsResponse {
	return AccountsResponse{
		Accounts: sess.Accounts.List(),
		Summary:  sess.Accounts.Summary(),
		Menu:     sess.Menu.State(),
	}
}

func hasAccount(sess *service.Session, id string) bool {
	for _, a := range sess.Accounts.List() {
		if a.ID == id {
			return true
		}
	}
	return false
}

func accountNotFound(id string) error {
	return &types.ServiceError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "account not found",
		Details: map[string]interface{}{"accountId": id},
	}
}

// handleListAccounts handles GET /api/accounts
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	respondJSON(w, http.StatusOK, accountsResponse(sess))
}

// handleRequestRemoval handles POST /api/accounts/{id}/removal. The menu the
// action was picked from is closed.
func (s *Server) handleRequestRemoval(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	id := mux.Vars(r)["id"]

	code, err := sess.Accounts.RequestRemoval(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	sess.Menu.Close(id)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"accountId":      id,
		"code":           code,
		"confirmEnabled": false,
	})
}

// handleCancelRemoval handles DELETE /api/accounts/{id}/removal
func (s *Server) handleCancelRemoval(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	sess.Accounts.CancelRemoval(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

type checkRemovalRequest struct {
	Code string `json:"code" validate:"max=16"`
}

// handleCheckRemoval handles POST /api/accounts/{id}/removal/check and
// reports whether the typed code would enable the confirm action
func (s *Server) handleCheckRemoval(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	var req checkRemovalRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accountId":      id,
		"confirmEnabled": sess.Accounts.CanConfirm(id, req.Code),
	})
}

type confirmRemovalRequest struct {
	Code string `json:"code" validate:"required,removal_code"`
}

// handleConfirmRemoval handles DELETE /api/accounts/{id}
func (s *Server) handleConfirmRemoval(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	var req confirmRemovalRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	if err := sess.Accounts.ConfirmRemoval(id, req.Code); err != nil {
		if errors.Is(err, accounts.ErrCodeMismatch) {
			err = apperrors.NewConfirmationMismatchError(id)
		}
		respondError(w, r, err)
		return
	}
	sess.Menu.Close(id)

	respondJSON(w, http.StatusOK, accountsResponse(sess))
}

type customizeRequest struct {
	Color string `json:"color" validate:"required,hex_color"`
}

// handleCustomizeAccount handles PUT /api/accounts/{id}/color
func (s *Server) handleCustomizeAccount(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	var req customizeRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	account, err := sess.Accounts.Customize(mux.Vars(r)["id"], req.Color)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// handleToggleMenu handles POST /api/accounts/{id}/menu
func (s *Server) handleToggleMenu(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	id := mux.Vars(r)["id"]
	if !hasAccount(sess, id) {
		respondError(w, r, accountNotFound(id))
		return
	}
	respondJSON(w, http.StatusOK, sess.Menu.Toggle(id))
}

type dismissRequest struct {
	Trigger string `json:"trigger" validate:"required,dismiss_trigger"`
}

// handleDismissMenu handles POST /api/overlay/dismiss
func (s *Server) handleDismissMenu(w http.ResponseWriter, r *http.Request, sess *service.Session) {
	var req dismissRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	trigger, err := overlay.ParseTrigger(req.Trigger)
	if err != nil {
		respondError(w, r, apperrors.NewInvalidParameterError("trigger", err.Error()))
		return
	}
	respondJSON(w, http.StatusOK, sess.Menu.Dismiss(trigger))
}
