package utils

import (
	"reflect"
	"strings"
	"time"
)

func FormatEpoch(millis int64) string {
	return time.UnixMilli(millis).
		UTC().
		Format(time.RFC3339)
}

func NowUTC() int64 {
	return time.Now().
		UTC().
		UnixMilli()
}

func FromEpoch(rfc string) (int64, error) {
	t, err := time.Parse(time.RFC3339, rfc)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// Sanitize trims whitespace on every string field (and string slice
// element) of the struct pointed to by o.
func Sanitize(o any) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		panic("sanitize: expected pointer to struct")
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		panic("sanitize: expected struct")
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(strings.TrimSpace(field.String()))

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.String {
				field.Elem().SetString(strings.TrimSpace(field.Elem().String()))
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					field.Index(j).SetString(strings.TrimSpace(field.Index(j).String()))
				}
			}
		}
	}
}
