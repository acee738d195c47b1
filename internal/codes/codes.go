// Package codes validates the product and pallet tokens accepted by the line.
//
// A product code is ten characters: day of year (001-366), the literal "CP",
// a variant (01-99) and a serial (001-999), e.g. "045CP01002".
// A pallet code is "PLT" followed by 01-26.
//
// Every entry point (equipment, REST, websocket) passes codes through
// NormalizeProduct and NormalizePallet before validating them, so the same
// token is accepted or rejected the same way wherever it arrives.
package codes

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	productPattern = regexp.MustCompile(`^\d{3}CP\d{2}\d{3}$`)
	palletPattern  = regexp.MustCompile(`^PLT(0[1-9]|1[0-9]|2[0-6])$`)
)

// NormalizeProduct returns the canonical form of a product code: trimmed, upper case.
func NormalizeProduct(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizePallet returns the canonical form of a pallet code: trimmed, upper case.
func NormalizePallet(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidProduct reports whether code is a well-formed product code.
func ValidProduct(code string) bool {
	if !productPattern.MatchString(code) {
		return false
	}
	day, _ := strconv.Atoi(code[:3])
	variant, _ := strconv.Atoi(code[5:7])
	serial, _ := strconv.Atoi(code[7:])
	return day >= 1 && day <= 366 && variant >= 1 && serial >= 1
}

// ValidPallet reports whether code is a well-formed pallet code.
func ValidPallet(code string) bool {
	return palletPattern.MatchString(code)
}

// Binding tags registered on the gin validator.
const (
	ProductTag = "productcode"
	PalletTag  = "palletcode"
)

// RegisterValidators adds the productcode and palletcode tags to v. The tags
// validate the normalized form of the field.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation(ProductTag, func(fl validator.FieldLevel) bool {
		return ValidProduct(NormalizeProduct(fl.Field().String()))
	}); err != nil {
		return err
	}
	return v.RegisterValidation(PalletTag, func(fl validator.FieldLevel) bool {
		return ValidPallet(NormalizePallet(fl.Field().String()))
	})
}
