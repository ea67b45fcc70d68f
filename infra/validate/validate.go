// Package validate registers the custom validation tags used by request payloads.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/vrpay/infra/config"
	"github.com/mstgnz/vrpay/provider"
)

var (
	amountPattern   = regexp.MustCompile(`^[0-9]{1,10}(\.[0-9]{2})?$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	brandPattern    = regexp.MustCompile(`^[a-zA-Z0-9_]{1,32}$`)

	registerOnce sync.Once
	registerErr  error
)

// CustomValidate registers paymenttype, vramount, currency and brand on the shared validator
func CustomValidate() error {
	registerOnce.Do(func() {
		v := config.App().Validator
		registerErr = errors.Join(
			v.RegisterValidation("paymenttype", func(fl validator.FieldLevel) bool {
				return provider.PaymentType(fl.Field().String()).Valid()
			}),
			v.RegisterValidation("vramount", matches(amountPattern)),
			v.RegisterValidation("currency", matches(currencyPattern)),
			v.RegisterValidation("brand", matches(brandPattern)),
		)
	})
	return registerErr
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Validate checks s against its validate tags
func Validate(s any) error {
	if err := CustomValidate(); err != nil {
		return err
	}
	return config.App().Validator.Struct(s)
}

// Errors turns validation errors into field → message pairs
func Errors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = "is required"
		case "min", "max":
			out[field] = fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
		case "vramount":
			out[field] = "must be a decimal with up to 10 digits and 2 decimals"
		default:
			out[field] = "is not a valid " + fe.Tag()
		}
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
