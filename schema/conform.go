package schema

import (
	"math"

	"github.com/Borislavv/go-ash-segments/model"
)

// Conform validates src against the schema and builds a record from it.
// Numeric values are normalized (ints to int64, floats to float64) so keys
// coming from different drivers compare equal. Errors wrap model.ErrValidation.
func (h *Handle) Conform(src model.FieldSource) (*model.Record, error) {
	in := src.Fields()
	out := make(model.Fields, len(h.fields))

	for name := range in {
		if !h.Has(name) {
			return nil, model.Validationf("schema %s: unknown field %q", h.name, name)
		}
	}
	for _, f := range h.fields {
		v, present := in[f.Name]
		if !present || v == nil {
			if !f.Optional {
				return nil, model.Validationf("schema %s: field %s is required", h.name, f.Name)
			}
			out[f.Name] = nil
			continue
		}
		cv, ok := coerce(f.Type, v)
		if !ok {
			return nil, model.Validationf("schema %s: field %s expects %s, got %T", h.name, f.Name, f.Type, v)
		}
		out[f.Name] = cv
	}

	return model.NewRecord(h.name, out), nil
}

// Trim drops fields the schema does not declare. Drivers use it on rows that
// carry extra columns.
func (h *Handle) Trim(in model.Fields) model.Fields {
	out := make(model.Fields, len(in))
	for k, v := range in {
		if h.Has(k) {
			out[k] = v
		}
	}
	return out
}

// NormalizeKey coerces a caller-supplied key to the lookup field's type.
func (h *Handle) NormalizeKey(key any) (any, error) {
	if key == nil {
		return nil, model.Validationf("schema %s: nil key", h.name)
	}
	v, ok := coerce(h.lookup.Type, key)
	if !ok {
		return nil, model.Validationf("schema %s: key %v (%T) does not fit lookup field %s", h.name, key, key, h.lookup)
	}
	return v, nil
}

func coerce(t FieldType, v any) (any, bool) {
	switch t {
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, true
		case []byte:
			return string(s), true
		}
		return nil, false
	case TypeInt:
		return toInt(v)
	case TypeFloat:
		return toFloat(v)
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, true
		default:
			if i, ok := toInt(v); ok && (i == 0 || i == 1) {
				return i == 1, true
			}
		}
		return nil, false
	case TypeRef:
		return scalar(v)
	default:
		if s, ok := scalar(v); ok {
			return s, true
		}
		return v, true
	}
}

// scalar normalizes key-like values; anything that cannot serve as a key fails.
func scalar(v any) (any, bool) {
	switch s := v.(type) {
	case string, bool:
		return s, true
	case []byte:
		return string(s), true
	case float32, float64:
		f, _ := toFloat(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return int64(f), true
		}
		return f, true
	default:
		return toInt(v)
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
