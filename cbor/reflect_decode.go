package cbor

import (
	"fmt"
	"math/big"
	"reflect"
	"time"
)

// DecodeValue decodes a single top-level CBOR item from b into dst, which
// must be a non-nil pointer. It is the reflective mirror of encodeStruct:
// a decoded map ([]Pair) populates a struct's exported fields by matching
// each pair's key against the field's name or its `cbor:"name"` override,
// the same lookup encodeStruct uses to produce the key in the first
// place. Fields whose key is absent from the map are left at their zero
// value, so the encode side's `,omitempty` round-trips cleanly.
func DecodeValue(b []byte, dst any, opts DecodeOptions) error {
	v, err := Unmarshal(b, opts)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("cbor: DecodeValue destination must be a non-nil pointer, got %T", dst)
	}
	return assignReflect(rv.Elem(), v)
}

var timeType = reflect.TypeOf(time.Time{})

func assignReflect(field reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return assignReflect(field.Elem(), v)
	}
	if field.Kind() == reflect.Interface {
		field.Set(reflect.ValueOf(v))
		return nil
	}
	if field.Type() == timeType {
		t, ok := v.(time.Time)
		if !ok {
			return typeMismatch(field, v)
		}
		field.Set(reflect.ValueOf(t))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(field, v)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return typeMismatch(field, v)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(v)
		if !ok {
			return typeMismatch(field, v)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toUint64(v)
		if !ok {
			return typeMismatch(field, v)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(v)
		if !ok {
			return typeMismatch(field, v)
		}
		field.SetFloat(f)
	case reflect.Slice:
		return assignSlice(field, v)
	case reflect.Map:
		return assignMap(field, v)
	case reflect.Struct:
		return assignStruct(field, v)
	default:
		return fmt.Errorf("cbor: cannot decode into %s", field.Type())
	}
	return nil
}

func assignSlice(field reflect.Value, v any) error {
	if field.Type().Elem().Kind() == reflect.Uint8 {
		bs, ok := v.([]byte)
		if !ok {
			return typeMismatch(field, v)
		}
		field.SetBytes(bs)
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return typeMismatch(field, v)
	}
	sl := reflect.MakeSlice(field.Type(), len(items), len(items))
	for i, it := range items {
		if err := assignReflect(sl.Index(i), it); err != nil {
			return err
		}
	}
	field.Set(sl)
	return nil
}

func assignMap(field reflect.Value, v any) error {
	pairs, ok := v.([]Pair)
	if !ok {
		return typeMismatch(field, v)
	}
	m := reflect.MakeMapWithSize(field.Type(), len(pairs))
	for _, p := range pairs {
		kv := reflect.New(field.Type().Key()).Elem()
		if err := assignReflect(kv, p.Key); err != nil {
			return err
		}
		vv := reflect.New(field.Type().Elem()).Elem()
		if err := assignReflect(vv, p.Value); err != nil {
			return err
		}
		m.SetMapIndex(kv, vv)
	}
	field.Set(m)
	return nil
}

func assignStruct(field reflect.Value, v any) error {
	pairs, ok := v.([]Pair)
	if !ok {
		return typeMismatch(field, v)
	}
	byName := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if k, ok := p.Key.(string); ok {
			byName[k] = p.Value
		}
	}
	t := field.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name, _, skip := parseCBORTag(f)
		if skip {
			continue
		}
		pv, present := byName[name]
		if !present {
			continue
		}
		if err := assignReflect(field.Field(i), pv); err != nil {
			return err
		}
	}
	return nil
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case *big.Int:
		if n.Sign() < 0 || !n.IsUint64() {
			return 0, false
		}
		return n.Uint64(), true
	default:
		return 0, false
	}
}

func typeMismatch(field reflect.Value, v any) error {
	return fmt.Errorf("cbor: cannot assign %T into %s", v, field.Type())
}
