package pdk

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = validator.New()

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// InputValid decodes the call's JSON input into v and validates the result
// against v's `validate` struct tags.
func (p *PDK) InputValid(v any) error {
	if err := p.InputJSON(v); err != nil {
		return err
	}
	return Validate(v)
}
