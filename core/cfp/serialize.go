package cfp

import (
	"fmt"
	"reflect"
)

type (
	// Referencer values are stored in drafts as their primary key only;
	// the full object is reloaded from its repository at finalization.
	Referencer interface {
		PK() interface{}
	}

	// DraftSerializer values control their own draft representation.
	DraftSerializer interface {
		SerializeDraft() interface{}
	}
)

// SerializeValue converts an arbitrary cleaned form value into something a
// draft can hold: files are skipped (ok=false; they go through the file
// staging path), referencers collapse to their primary key, iterables
// serialize element-wise, everything unknown falls back to its string
// form.
func SerializeValue(v interface{}) (out interface{}, ok bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case UploadedFile, *UploadedFile, FileRef, *FileRef:
		return nil, false
	case DraftSerializer:
		return t.SerializeDraft(), true
	case Referencer:
		return t.PK(), true
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 { // raw bytes stay opaque
			return fmt.Sprint(v), true
		}
		out := make([]interface{}, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if sv, ok := SerializeValue(rv.Index(i).Interface()); ok {
				out = append(out, sv)
			}
		}
		return out, true
	}
	return fmt.Sprint(v), true
}

// SerializeMap applies SerializeValue to every entry, dropping skipped
// (file-like) values.
func SerializeMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if sv, ok := SerializeValue(v); ok {
			out[k] = sv
		}
	}
	return out
}
