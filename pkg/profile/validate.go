package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MinimumAge      = 18
	BirthDateLayout = "2006-01-02"
)

// InvalidProfileError lists everything wrong with a profile form.
type InvalidProfileError struct {
	Missing      []string
	BadBirthDate bool
	Age          int
	Underage     bool
}

func (e *InvalidProfileError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Missing, ", "))
	}
	if e.BadBirthDate {
		parts = append(parts, "birth date must use YYYY-MM-DD")
	}
	if e.Underage {
		parts = append(parts, fmt.Sprintf("age %d is below the minimum of %d", e.Age, MinimumAge))
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate enforces the checks the profile screen performs before Login:
// required fields and a minimum age computed from the birth date at now.
func Validate(p Profile, now time.Time) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	p.BirthDate = strings.TrimSpace(p.BirthDate)

	verr := &InvalidProfileError{}
	if err := validate.Struct(p); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		for _, fe := range fields {
			verr.Missing = append(verr.Missing, fe.Field())
		}
	}

	if p.BirthDate != "" {
		birth, err := time.ParseInLocation(BirthDateLayout, p.BirthDate, now.Location())
		if err != nil {
			verr.BadBirthDate = true
		} else {
			verr.Age = Age(birth, now)
			verr.Underage = verr.Age < MinimumAge
		}
	}

	if len(verr.Missing) > 0 || verr.BadBirthDate || verr.Underage {
		return verr
	}
	return nil
}

// Age is the number of whole years between birth and now.
func Age(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
