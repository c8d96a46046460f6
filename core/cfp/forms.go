package cfp

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FieldMeta describes one form field for rendering and for the read-only
// configuration/editor path.
type FieldMeta struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Help     string `json:"help,omitempty"`
	Required bool   `json:"required"`
	Widget   string `json:"widget"`
}

// FormFields reflects a tagged form struct into field metadata. Tags:
// `form` (field name), `label`, `help`, `widget`; required is derived from
// the `validate` tag.
func FormFields(form interface{}) []FieldMeta {
	rt := reflect.TypeOf(form)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	fields := make([]FieldMeta, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		fld := rt.Field(i)
		name := fld.Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		label := fld.Tag.Get("label")
		if label == "" {
			label = strings.Title(strings.ReplaceAll(name, "_", " "))
		}
		widget := fld.Tag.Get("widget")
		if widget == "" {
			widget = defaultWidget(fld.Type)
		}
		fields = append(fields, FieldMeta{
			Name:     name,
			Label:    label,
			Help:     fld.Tag.Get("help"),
			Required: hasRequiredRule(fld.Tag.Get("validate")),
			Widget:   widget,
		})
	}
	return fields
}

func defaultWidget(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "checkbox"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice:
		return "multiselect"
	default:
		return "text"
	}
}

func hasRequiredRule(validateTag string) bool {
	for _, rule := range strings.Split(validateTag, ",") {
		if rule == "required" {
			return true
		}
	}
	return false
}

// BindForm fills a tagged form struct from submitted values.
func BindForm(values map[string][]string, form interface{}) error {
	rv := reflect.ValueOf(form)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.New("cfp.BindForm: form must be a struct pointer")
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		vs, ok := values[name]
		if !ok {
			continue
		}
		if err := setField(rv.Field(i), vs); err != nil {
			return errors.Wrapf(err, "cfp.BindForm: field %q", name)
		}
	}
	return nil
}

// BindDraft fills a tagged form struct from a stored draft slice. Numeric
// values may come back as float64 after a serialization round trip.
func BindDraft(data map[string]interface{}, form interface{}) error {
	rv := reflect.ValueOf(form)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.New("cfp.BindDraft: form must be a struct pointer")
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		raw, ok := data[name]
		if !ok || raw == nil {
			continue
		}
		if err := setField(rv.Field(i), toStrings(raw)); err != nil {
			return errors.Wrapf(err, "cfp.BindDraft: field %q", name)
		}
	}
	return nil
}

func toStrings(raw interface{}) []string {
	switch t := raw.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, v := range t {
			out = append(out, stringify(v))
		}
		return out
	default:
		return []string{stringify(raw)}
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func setField(fv reflect.Value, vs []string) error {
	if len(vs) == 0 {
		return nil
	}
	s := vs[0]
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		if s == "" {
			fv.SetBool(false)
			return nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			// checkbox-style "on"
			b = s == "on"
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if s == "" {
			fv.SetInt(0)
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		if s == "" {
			fv.SetFloat(0)
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			fv.Set(reflect.ValueOf(vs))
			return nil
		}
		return errors.Errorf("unsupported slice kind %s", fv.Type())
	default:
		return errors.Errorf("unsupported field kind %s", fv.Kind())
	}
	return nil
}

// FormData reflects a tagged form struct back into a field map, ready for
// draft serialization.
func FormData(form interface{}) map[string]interface{} {
	rv := reflect.ValueOf(form)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	rt := rv.Type()
	data := make(map[string]interface{}, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		data[name] = rv.Field(i).Interface()
	}
	return data
}
