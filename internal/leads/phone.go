package leads

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// CountryCode is the fixed prefix of the canonical phone form.
const CountryCode = "+91"

// Optional +91, then ten digits starting 6-9.
var mobilePattern = regexp.MustCompile(`^(?:\+91)?[6-9]\d{9}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the "inmobile" tag registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("inmobile", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		})
	})
	return validate
}

// ValidPhone reports whether raw, after removing whitespace, is an Indian
// mobile number with an optional +91 prefix.
func ValidPhone(raw string) bool {
	return mobilePattern.MatchString(stripSpaces(raw))
}

// NormalizePhone returns the canonical +91XXXXXXXXXX form.
func NormalizePhone(raw string) (string, error) {
	compact := stripSpaces(raw)
	if !mobilePattern.MatchString(compact) {
		return "", ErrInvalidPhone
	}
	if strings.HasPrefix(compact, CountryCode) {
		return compact, nil
	}
	return CountryCode + compact, nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

var fieldMessages = map[string]string{
	"Phone.required":   "phone number is required",
	"Phone.inmobile":   ErrInvalidPhone.Error(),
	"Source.oneof":     "source must be one of call_button, periodic_prompt, website, contact_form",
	"Notes.max":        "notes must be at most 1000 characters",
	"PageURL.max":      "page url is too long",
	"DeviceType.oneof": "device type must be one of desktop, mobile, tablet, android, ios",
}

// ValidationMessages maps validator errors to field -> message pairs.
func ValidationMessages(err error) []map[string]string {
	out := make([]map[string]string, 0)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			out = append(out, map[string]string{"request": err.Error()})
		}
		return out
	}
	for _, e := range verrs {
		key := e.StructField() + "." + e.Tag()
		msg, ok := fieldMessages[key]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", e.Field())
		}
		out = append(out, map[string]string{jsonField(e.StructField()): msg})
	}
	return out
}

// PhoneRejected reports whether err includes a failure on the phone number.
func PhoneRejected(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Is(err, ErrInvalidPhone)
	}
	for _, e := range verrs {
		if e.StructField() == "Phone" {
			return true
		}
	}
	return false
}

func jsonField(structField string) string {
	switch structField {
	case "Phone":
		return "phone_number"
	case "PageURL":
		return "page_url"
	case "DeviceType":
		return "device_type"
	default:
		return strings.ToLower(structField)
	}
}
