// Package omitnilpointers flattens optional fields into the set of values to write.
package omitnilpointers

import (
	"encoding"
	"reflect"
)

// OmitNilPointers drops nil values and nil pointers and dereferences the rest.
// Values implementing encoding.TextMarshaler are stored in their text form.
func OmitNilPointers(fields map[string]any) (map[string]any, error) {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				continue
			}
			value = v.Elem().Interface()
		}

		if m, ok := value.(encoding.TextMarshaler); ok {
			text, err := m.MarshalText()
			if err != nil {
				return nil, err
			}
			value = string(text)
		}

		omitted[key] = value
	}

	return omitted, nil
}

// Pairs returns fields as a flat key/value list.
func Pairs(fields map[string]any) []any {
	pairs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, k, v)
	}

	return pairs
}
