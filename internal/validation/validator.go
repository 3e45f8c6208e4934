// Package validation provides the request validator and the custom tags used by
// the dashboard's request bodies.
package validation

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sedna-dashboard/internal/overlay"
	"github.com/sedna-dashboard/internal/series"
	"github.com/sedna-dashboard/internal/service"
)

var (
	hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	codeRegex     = regexp.MustCompile(`^[0-9]{8}$`)
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Get returns the shared validator with all custom tags registered
func Get() *validator.Validate {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates a validator with all custom tags registered
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("series_range", validateSeriesRange)
	_ = v.RegisterValidation("dismiss_trigger", validateDismissTrigger)
	_ = v.RegisterValidation("tx_filter", validateTxFilter)
	_ = v.RegisterValidation("removal_code", validateRemovalCode)
	return v
}

// validateHexColor accepts #rrggbb only
func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateSeriesRange(fl validator.FieldLevel) bool {
	_, err := series.ParseRange(fl.Field().String())
	return err == nil
}

func validateDismissTrigger(fl validator.FieldLevel) bool {
	_, err := overlay.ParseTrigger(fl.Field().String())
	return err == nil
}

func validateTxFilter(fl validator.FieldLevel) bool {
	_, err := service.ParseTxFilter(fl.Field().String())
	return err == nil
}

func validateRemovalCode(fl validator.FieldLevel) bool {
	return codeRegex.MatchString(fl.Field().String())
}

// FieldErrors flattens validation errors into field -> failed tag
func FieldErrors(err error) map[string]interface{} {
	out := make(map[string]interface{})
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
