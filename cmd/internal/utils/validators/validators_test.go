package validators

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Password string `validate:"hasupper,haslower,hasdigit,hasspecial,nospaces"`
	When     string `validate:"iso8601"`
	Color    string `validate:"eventcolor"`
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	for tag, fn := range map[string]validator.Func{
		"hasupper":   HasUpper,
		"haslower":   HasLower,
		"hasdigit":   HasDigit,
		"hasspecial": HasSpecial,
		"nospaces":   NoWhiteSpaces,
		"iso8601":    IsIso8601,
		"eventcolor": IsEventColor,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			t.Fatalf("register %s: %v", tag, err)
		}
	}
	return v
}

func TestCustomValidators(t *testing.T) {
	v := newValidate(t)

	ok := sample{Password: "Sup3r!secret", When: "2024-05-01T10:00:00Z", Color: "#3B82F6"}
	assert.NoError(t, v.Struct(ok))

	tests := []struct {
		name   string
		mutate func(*sample)
	}{
		{"no uppercase", func(s *sample) { s.Password = "sup3r!secret" }},
		{"no digit", func(s *sample) { s.Password = "Super!secret" }},
		{"no special", func(s *sample) { s.Password = "Sup3rsecret" }},
		{"whitespace", func(s *sample) { s.Password = "Sup3r! secret" }},
		{"bad timestamp", func(s *sample) { s.When = "2024-05-01 10:00" }},
		{"color off palette", func(s *sample) { s.Color = "#123456" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mutate(&s)
			assert.Error(t, v.Struct(s))
		})
	}
}
