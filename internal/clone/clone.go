// Package clone produces deep, independent copies of plain data values so
// remote query payloads and schema snapshots can be held locally without
// sharing backing arrays or maps with their origin.
package clone

import "reflect"

// Clone returns a deep copy of value. Unexported struct fields are left at
// their zero value since reflection cannot set them.
func Clone[T any](value T) T {
	var zero T
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return zero
	}
	copied := deepCopy(rv)
	if !copied.IsValid() {
		return zero
	}
	out, ok := copied.Interface().(T)
	if !ok {
		return zero
	}
	return out
}

// Slice copies every element of values. A nil input stays nil so callers can
// keep the nil vs empty distinction.
func Slice[T any](values []T) []T {
	if values == nil {
		return nil
	}
	out := make([]T, len(values))
	for i := range values {
		out[i] = Clone(values[i])
	}
	return out
}

func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		inner := deepCopy(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(deepCopy(v.Field(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
