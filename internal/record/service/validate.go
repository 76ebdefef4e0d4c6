package service

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	recorderrors "github.com/abgdnv/recordstore/internal/record/errors"
	"github.com/abgdnv/recordstore/internal/record/store"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// validate is safe for concurrent use and caches rule parsing.
var validate = validator.New()

// Param is an untyped request parameter as received from the transport layer.
type Param struct {
	Value   string
	Present bool
	// Text is false when the value was sent as a JSON number.
	Text bool
}

// TextParam returns a Param holding a string value.
func TextParam(value string) Param {
	return Param{Value: value, Present: true, Text: true}
}

// NumberParam returns a Param holding the literal of a JSON number.
func NumberParam(value string) Param {
	return Param{Value: value, Present: true}
}

// SanitizeText normalizes user supplied text: NFC form, no invalid UTF-8,
// control characters and repeated whitespace collapsed to single spaces, trimmed.
func SanitizeText(value string) string {
	value = strings.ToValidUTF8(value, "")
	value = norm.NFC.String(value)
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)
	return strings.Join(strings.Fields(value), " ")
}

// MaxNameLength is the longest accepted name, in characters, after sanitization.
const MaxNameLength = 255

// nameRules must stay in step with MaxNameLength.
const nameRules = "required,max=255"

// ValidateName returns the sanitized name or ErrInvalidName when it is missing,
// not a string, empty after sanitization or longer than MaxNameLength.
func ValidateName(p Param) (string, error) {
	if !p.Present || !p.Text {
		return "", recorderrors.ErrInvalidName
	}
	name := SanitizeText(p.Value)
	if err := validate.Var(name, nameRules); err != nil {
		return "", recorderrors.ErrInvalidName
	}
	return name, nil
}

// ValidateKind returns the record kind or ErrInvalidKind.
func ValidateKind(p Param) (store.Kind, error) {
	if !p.Present || !p.Text {
		return "", recorderrors.ErrInvalidKind
	}
	if err := validate.Var(p.Value, "required,oneof=product service subscription"); err != nil {
		return "", recorderrors.ErrInvalidKind
	}
	return store.Kind(p.Value), nil
}

// ValidatePrice returns the parsed price or ErrInvalidPrice.
// Missing, empty, zero and non-numeric values are all rejected.
func ValidatePrice(p Param) (float64, error) {
	price, ok := numericValue(p)
	if !ok || price == 0 {
		return 0, recorderrors.ErrInvalidPrice
	}
	return price, nil
}

// ValidateDuration returns the parsed duration or ErrInvalidDuration.
// Missing, empty, zero and non-integral values are all rejected.
func ValidateDuration(p Param) (int, error) {
	value, ok := numericValue(p)
	if !ok || value == 0 || value != math.Trunc(value) || math.Abs(value) > maxExactInt {
		return 0, recorderrors.ErrInvalidDuration
	}
	return int(value), nil
}

// ValidateFrequency returns the billing frequency or ErrInvalidFrequency.
func ValidateFrequency(p Param) (store.Frequency, error) {
	if !p.Present || !p.Text {
		return "", recorderrors.ErrInvalidFrequency
	}
	if err := validate.Var(p.Value, "required,oneof=monthly yearly"); err != nil {
		return "", recorderrors.ErrInvalidFrequency
	}
	return store.Frequency(p.Value), nil
}

// maxExactInt is the largest integer a float64 holds without rounding.
const maxExactInt = 1 << 53

// numericValue parses a present, non-empty decimal literal. Exponent and bare
// decimal forms (1e2, .5, 5.) are numbers; hex literals, NaN and infinities are not.
func numericValue(p Param) (float64, bool) {
	if !p.Present {
		return 0, false
	}
	value := strings.TrimSpace(p.Value)
	if err := validate.Var(value, "required"); err != nil {
		return 0, false
	}
	if strings.ContainsAny(value, "xX_") {
		return 0, false
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
