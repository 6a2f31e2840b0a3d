package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"
)

// JSONResponse writes data as JSON with every nil slice encoded as [] instead of null.
// Use it instead of json.NewEncoder(w).Encode for all API responses.
func JSONResponse(w http.ResponseWriter, data any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(normalizeSlices(data))
}

var timeType = reflect.TypeOf(time.Time{})

// normalizeSlices recursively replaces nil slices with empty ones
func normalizeSlices(data any) any {
	if data == nil {
		return nil
	}
	v := reflect.ValueOf(data)
	return normalizeValue(v).Interface()
}

func normalizeValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || v.Type().Elem() == timeType {
			return v
		}
		result := reflect.New(v.Type().Elem())
		result.Elem().Set(normalizeValue(v.Elem()))
		return result

	case reflect.Slice:
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0)
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			result.Index(i).Set(normalizeValue(v.Index(i)))
		}
		return result

	case reflect.Map:
		if v.IsNil() || v.Type().Elem().Kind() != reflect.Slice {
			return v
		}
		result := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			result.SetMapIndex(iter.Key(), normalizeValue(iter.Value()))
		}
		return result

	case reflect.Struct:
		if v.Type() == timeType {
			return v
		}
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := result.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(normalizeValue(v.Field(i)))
		}
		return result
	}
	return v
}
