package transport

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/service"
)

// messenger is implemented by forms that word their own field errors.
type messenger interface {
	FieldMessages() map[string]string
}

// maxPrice is the first value a numeric(10,2) column cannot hold.
var maxPrice = decimal.New(1, 8)

// ParsePrice reads a price as it will be stored: rounded to cents, positive
// and below maxPrice.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, false
	}
	d = d.Round(2)
	return d, d.IsPositive() && d.LessThan(maxPrice)
}

// Validator plugs go-playground/validator into echo and reports failures as
// *service.ValidationError keyed by form field name.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, ok := ParsePrice(fl.Field().String())
		return ok
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var msgs map[string]string
	if m, ok := i.(messenger); ok {
		msgs = m.FieldMessages()
	}

	out := &service.ValidationError{}
	seen := map[string]bool{}
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		msg, ok := msgs[field]
		if !ok {
			msg = "Invalid value for " + field + "."
		}
		out.Fields = append(out.Fields, service.FieldError{Field: field, Message: msg})
	}
	return out
}
