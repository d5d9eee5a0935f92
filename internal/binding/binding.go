// Package binding converts between user-entered key=value input and typed
// structs (filters and mutation payloads), and validates the result.
package binding

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/pkg/types"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	decoder  = newDecoder()
	encoder  = newEncoder()
	validate = newValidator()
)

// Accepted input layouts for time fields, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses s using the layouts the console accepts.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return decimal.NewFromString(strings.TrimSpace(vals[0]))
	}, decimal.Decimal{})
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return ParseTime(vals[0])
	}, time.Time{})
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return types.ParseDate(vals[0])
	}, types.Date{})
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return types.ParseDateTime(vals[0])
	}, types.DateTime{})
	return d
}

func newEncoder() *form.Encoder {
	e := form.NewEncoder()
	e.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		return []string{x.(decimal.Decimal).String()}, nil
	}, decimal.Decimal{})
	e.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		t := x.(time.Time)
		if t.IsZero() {
			return nil, nil
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return []string{t.Format("2006-01-02")}, nil
		}
		return []string{t.Format("2006-01-02T15:04")}, nil
	}, time.Time{})
	e.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		if d := x.(types.Date); !d.IsZero() {
			return []string{d.String()}, nil
		}
		return nil, nil
	}, types.Date{})
	e.RegisterCustomTypeFunc(func(x interface{}) ([]string, error) {
		if t := x.(types.DateTime); !t.IsZero() {
			return []string{t.Format("2006-01-02T15:04")}, nil
		}
		return nil, nil
	}, types.DateTime{})
	return e
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch t := field.Interface().(type) {
		case types.Date:
			return t.Time
		case types.DateTime:
			return t.Time
		}
		return nil
	}, types.Date{}, types.DateTime{})
	return v
}

// Clean returns a copy of values without blank entries; blank input means "not set".
func Clean(values url.Values) url.Values {
	out := url.Values{}
	for k, vs := range values {
		for _, s := range vs {
			if strings.TrimSpace(s) != "" {
				out.Add(k, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// ParsePairs turns ["a=1", "b=x y"] into url.Values.
func ParsePairs(pairs []string) (url.Values, error) {
	out := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.NewValidationError("", fmt.Sprintf("expected key=value, got %q", p), nil)
		}
		out.Add(k, v)
	}
	return out, nil
}

func formName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	if name == "" {
		return f.Name
	}
	return name
}

// FieldNames returns the form names of v's fields in declaration order.
func FieldNames(v interface{}) []string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || formName(f) == "-" {
			continue
		}
		names = append(names, formName(f))
	}
	return names
}

// resetBlank zeroes the fields of dst whose key is present in values with
// only blank entries, so "field=" clears an optional value.
func resetBlank(dst interface{}, values url.Values) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	s := rv.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		vs, ok := values[formName(t.Field(i))]
		if !ok || !s.Field(i).CanSet() {
			continue
		}
		blank := true
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				blank = false
			}
		}
		if blank {
			s.Field(i).Set(reflect.Zero(t.Field(i).Type))
		}
	}
}

// Decode fills dst (a struct pointer) from values, overlaying fields that
// are already set. A key with only blank values resets its field.
func Decode(dst interface{}, values url.Values) error {
	resetBlank(dst, values)
	if err := decoder.Decode(dst, Clean(values)); err != nil {
		if decErrs, ok := err.(form.DecodeErrors); ok {
			keys := make([]string, 0, len(decErrs))
			for k := range decErrs {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			first := keys[0]
			return errors.NewValidationError(first, fmt.Sprintf("%s: invalid value", first), decErrs[first])
		}
		return errors.NewValidationError("", err.Error(), err)
	}
	return nil
}

// Encode renders src (a struct) as url.Values. Nil pointers are omitted.
func Encode(src interface{}) (url.Values, error) {
	return encoder.Encode(src)
}

// Validate runs struct-tag validation and reports the first failing field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fe.Field(), message(fe), err)
	}
	return errors.NewValidationError("", err.Error(), err)
}

// Bind decodes values into a new T and validates it.
func Bind[T any](values url.Values) (T, error) {
	var out T
	if err := Decode(&out, values); err != nil {
		return out, err
	}
	if err := Validate(&out); err != nil {
		return out, err
	}
	return out, nil
}

// Filter decodes values into the typed filter F and returns its criteria.
// Keys F does not declare are rejected.
func Filter[F filter.Typed](values url.Values) (filter.State, error) {
	var zero F
	known := map[string]bool{}
	for _, n := range FieldNames(zero) {
		known[n] = true
	}
	unknown := make([]string, 0)
	for k := range values {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, errors.NewValidationError(unknown[0], fmt.Sprintf("unknown filter %q", unknown[0]), nil)
	}

	f, err := Bind[F](values)
	if err != nil {
		return nil, err
	}
	return f.State(), nil
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, fe.Param())
	case "gtefield", "gtfield":
		return fmt.Sprintf("%s must not be before %s", field, fe.Param())
	case "e164":
		return fmt.Sprintf("%s must be a phone number in international format", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
