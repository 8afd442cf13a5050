package services

import (
	"github.com/upb/travel-control-plane/utils"
)

// ValidateInput runs struct tag validation and returns ErrInvalidInput carrying
// the per-field messages under the "fields" detail.
func ValidateInput(input interface{}) error {
	err := utils.ValidateStruct(input)
	if err == nil {
		return nil
	}
	wrapped := ErrInvalidInput.Wrap(err)
	if fields := utils.GetValidationFields(err); fields != nil {
		wrapped = wrapped.WithDetail("fields", fields)
	}
	return wrapped
}
