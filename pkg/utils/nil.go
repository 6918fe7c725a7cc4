package utils

import "reflect"

// IsNil reports whether v is nil or an interface wrapping a nil
// pointer, map, slice, chan or func.
func IsNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return reflect.ValueOf(v).IsNil()
	default:
		return false
	}
}
