package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// timestampLayouts are the accepted forms for event and schedule times.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, ok := parseTimestamp(fl.Field().String())
		return ok
	})
	return v
}

// normalizeEmail trims and lower-cases an address before it is stored or
// compared. A Caser is stateful, so each call gets its own.
func normalizeEmail(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	return validate.Var(s, "emailaddr") == nil
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// fieldMessages maps "field.tag" to the message reported for that failure.
type fieldMessages map[string]string

// validateStruct runs the struct tags on v. Failures are translated to a
// field -> message map; the first failing tag per field wins.
func validateStruct(v any, msgs fieldMessages) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := details[field]; seen {
			continue
		}
		msg, ok := msgs[field+"."+fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		details[field] = msg
	}
	return details, nil
}

// fieldErrors collects hand-written validation failures.
type fieldErrors map[string]string

func (e fieldErrors) add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

func (e fieldErrors) has(field string) bool {
	_, ok := e[field]
	return ok
}

// optional is a JSON field that records whether it was present in the body.
// An explicit null counts as present with the zero value.
type optional[T any] struct {
	Set   bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// flag reads a boolean that may arrive as a JSON bool or as "true"/"false".
func flag(v any) (string, bool) {
	switch b := v.(type) {
	case bool:
		if b {
			return "true", true
		}
		return "false", true
	case string:
		if b == "true" || b == "false" {
			return b, true
		}
	}
	return "", false
}

func runeLen(s string) int {
	return len([]rune(s))
}
