package handler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "eam/pkg/domain-errors"
	pstrings "eam/pkg/platform/strings"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	stringsType = reflect.TypeOf([]string{})
)

// bookkeeping fields are never bound from forms.
var bookkeeping = map[string]bool{"id": true, "created_at": true, "updated_at": true}

var textareas = map[string]bool{"description": true, "minutes": true, "notes": true, "comment": true, "attendees": true}

// formDateLayouts are tried in order when binding date and time inputs.
var formDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

type field struct {
	Name string
	Type reflect.Type
}

// fieldsOf lists the JSON fields of T in declaration order, flattening
// embedded structs.
func fieldsOf(t reflect.Type) []field {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var out []field
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			out = append(out, fieldsOf(sf.Type)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		out = append(out, field{Name: name, Type: sf.Type})
	}
	return out
}

// formPayload turns an HTML form submission into the JSON document the API
// accepts, so forms and JSON clients share one decode path. Only submitted
// fields are included, which keeps edits partial.
func formPayload(t reflect.Type, values url.Values) ([]byte, error) {
	out := map[string]any{}
	invalid := map[string]string{}
	for _, f := range fieldsOf(t) {
		raw, ok := values[f.Name]
		if !ok || bookkeeping[f.Name] {
			continue
		}
		v, keep, err := formValue(f.Type, raw)
		if err != nil {
			invalid[f.Name] = err.Error()
			continue
		}
		if keep {
			out[f.Name] = v
		}
	}
	if len(invalid) > 0 {
		return nil, dErrors.WithFields("invalid input", invalid)
	}
	return json.Marshal(out)
}

func formValue(t reflect.Type, raw []string) (any, bool, error) {
	if t == stringsType {
		return pstrings.SplitList(raw...), true, nil
	}

	value := ""
	if len(raw) > 0 {
		value = strings.TrimSpace(raw[len(raw)-1])
	}
	nullable := t.Kind() == reflect.Pointer
	if nullable {
		if value == "" {
			return nil, true, nil
		}
		t = t.Elem()
	}

	switch {
	case t == timeType:
		if value == "" {
			return nil, false, nil
		}
		for _, layout := range formDateLayouts {
			if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
				return ts, true, nil
			}
		}
		return nil, false, fmt.Errorf("must be a date or date-time")
	case t == uuidType:
		if _, err := uuid.Parse(value); err != nil {
			return nil, false, fmt.Errorf("must be a valid id")
		}
		return value, true, nil
	}

	switch t.Kind() {
	case reflect.String:
		return value, true, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		if value == "" {
			return nil, false, nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, false, fmt.Errorf("must be a whole number")
		}
		return n, true, nil
	case reflect.Float32, reflect.Float64:
		if value == "" {
			return nil, false, nil
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, false, fmt.Errorf("must be a number")
		}
		return n, true, nil
	case reflect.Bool:
		return value == "on" || value == "true" || value == "1", true, nil
	}
	return nil, false, fmt.Errorf("unsupported field type %s", t)
}

// inputType picks the HTML control used for a field.
func inputType(f field) string {
	t := f.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case textareas[f.Name]:
		return "textarea"
	case t == timeType:
		return "datetime-local"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		return "number"
	}
	return "text"
}
