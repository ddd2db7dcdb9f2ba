package validators

import (
	"time"
	"unicode"

	"agendo/cmd/internal/calendar"
	"github.com/go-playground/validator/v10"
)

func HasUpper(fl validator.FieldLevel) bool {
	return containsClass(fl.Field().String(), unicode.IsUpper)
}

func HasLower(fl validator.FieldLevel) bool {
	return containsClass(fl.Field().String(), unicode.IsLower)
}

func HasDigit(fl validator.FieldLevel) bool {
	return containsClass(fl.Field().String(), unicode.IsDigit)
}

func HasSpecial(fl validator.FieldLevel) bool {
	return containsClass(fl.Field().String(), func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func NoWhiteSpaces(fl validator.FieldLevel) bool {
	return !containsClass(fl.Field().String(), unicode.IsSpace)
}

func IsIso8601(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

func IsEventColor(fl validator.FieldLevel) bool {
	return calendar.ValidColor(fl.Field().String())
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}
