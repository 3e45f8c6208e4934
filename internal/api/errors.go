package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/types"
	"github.com/sedna-dashboard/internal/validation"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError categorizes err and writes it as an error response. System
// errors are logged with their cause and reported with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	logger := logging.FromContext(r.Context()).WithFields(map[string]interface{}{
		"code":   catErr.Code,
		"status": catErr.StatusCode,
	})
	if apperrors.IsSystemError(catErr) {
		logger.WithError(err).Error("Request failed")
	} else {
		logger.Debug("Request rejected")
	}

	writeError(w, catErr.StatusCode, catErr.ToServiceError())
}

func writeError(w http.ResponseWriter, statusCode int, svcErr *types.ServiceError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: *svcErr})
}

// respondJSON sends a JSON response. The body is encoded before the status is
// written so an unencodable value still yields an error response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var body []byte
	if data != nil {
		var err error
		if body, err = json.Marshal(data); err != nil {
			logging.WithError(err).Error("Failed to encode response")
			writeError(w, http.StatusInternalServerError, apperrors.NewInternalError("failed to encode response", err).ToServiceError())
			return
		}
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// parseJSONBody decodes the request body into v and runs struct validation
// on it. Unknown fields are rejected.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.NewInvalidBodyError(err)
	}
	return validateBody(v)
}

func validateBody(v interface{}) error {
	err := validation.Get().Struct(v)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return apperrors.NewInvalidBodyError(err)
	}

	first := invalid[0]
	catErr := apperrors.NewInvalidParameterError(first.Field(), fmt.Sprintf("failed %q validation", first.Tag()))
	catErr.Details = validation.FieldErrors(err)
	return catErr
}

// validateParam checks one query parameter against a validator tag
func validateParam(name, value, tag string) error {
	if err := validation.Get().Var(value, tag); err != nil {
		return apperrors.NewInvalidParameterError(name, fmt.Sprintf("failed %q validation", tag))
	}
	return nil
}
