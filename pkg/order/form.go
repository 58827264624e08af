package order

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPhoneLength is the shortest phone number accepted at checkout.
const MinPhoneLength = 10

// Form is the delivery data entered at checkout.
type Form struct {
	CustomerName    string `json:"customer_name" validate:"required"`
	CustomerPhone   string `json:"customer_phone" validate:"required,min=10"`
	CustomerAddress string `json:"customer_address" validate:"required"`
	Notes           string `json:"notes"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize returns a copy with surrounding whitespace removed.
func (f Form) Normalize() Form {
	return Form{
		CustomerName:    strings.TrimSpace(f.CustomerName),
		CustomerPhone:   strings.TrimSpace(f.CustomerPhone),
		CustomerAddress: strings.TrimSpace(f.CustomerAddress),
		Notes:           strings.TrimSpace(f.Notes),
	}
}

// Check validates the form together with the number of cart lines and
// reports every problem at once. f must already be normalized.
func (f Form) Check(lines int) error {
	var problems []error
	if lines == 0 {
		problems = append(problems, &EmptyCartError{})
	}

	var missing []string
	var phone *InvalidPhoneError
	var verrs validator.ValidationErrors
	if err := validate.Struct(f); err != nil {
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				missing = append(missing, fe.Field())
			case "min":
				phone = &InvalidPhoneError{Phone: f.CustomerPhone, MinLength: MinPhoneLength}
			}
		}
	}
	if len(missing) > 0 {
		problems = append(problems, &MissingFieldError{Fields: missing})
	}
	if phone != nil {
		problems = append(problems, phone)
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
