package orm

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaporm/pkg/core"
)

// Validate checks write values against the model's columns and returns them
// converted to storage form, keyed by field.
//
// On insert, declared defaults are applied to missing fields and a missing
// non-nullable field without a default is rejected. Increments keys may be
// omitted. Errors are *core.ValidationError, reported for the first failing
// field in sorted order.
func (m *Model) Validate(values map[string]any, insert bool) (map[string]any, error) {
	out := make(map[string]any, len(values))

	for _, field := range sortedKeys(values) {
		col, ok := m.columns[field]
		if !ok {
			return nil, &core.ValidationError{Field: field, Value: values[field], Reason: "unknown field"}
		}
		v, err := convertValue(field, col, values[field])
		if err != nil {
			return nil, err
		}
		out[field] = v
	}

	if !insert {
		return out, nil
	}

	for _, field := range m.ColumnKeys() {
		if _, ok := out[field]; ok {
			continue
		}
		col := m.columns[field]
		switch {
		case col.HasDefault():
			v, err := convertValue(field, col, col.DefaultValue)
			if err != nil {
				return nil, err
			}
			out[field] = v
		case col.Nullable, col.Type == core.TypeIncrements:
		default:
			return nil, &core.ValidationError{Field: field, Reason: "is required"}
		}
	}
	return out, nil
}

func convertValue(field string, col core.Column, v any) (any, error) {
	fail := func(reason string, args ...any) error {
		return &core.ValidationError{Field: field, Value: v, Reason: fmt.Sprintf(reason, args...)}
	}

	if v == nil {
		if !col.Nullable {
			return nil, fail("must not be null")
		}
		return nil, nil
	}

	switch col.Type {
	case core.TypeVarchar, core.TypeChar, core.TypeText:
		s, ok := v.(string)
		if !ok {
			return nil, fail("expected a string, got %T", v)
		}
		if col.MaxLength > 0 && utf8.RuneCountInString(s) > col.MaxLength {
			return nil, fail("longer than %d characters", col.MaxLength)
		}
		return s, nil

	case core.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fail("expected a string, got %T", v)
		}
		if !slices.Contains(col.Values, s) {
			return nil, fail("must be one of %v", col.Values)
		}
		return s, nil

	case core.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fail("expected a bool, got %T", v)
		}
		return b, nil

	case core.TypeInteger, core.TypeBigInteger, core.TypeIncrements:
		n, err := toInt64(v)
		switch {
		case errors.Is(err, errIntRange):
			return nil, fail("%v is out of range for a 64-bit integer", v)
		case err != nil:
			return nil, fail("expected an integer, got %T", v)
		}
		return n, nil

	case core.TypeFloating:
		switch f := v.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		}
		if n, err := toInt64(v); err == nil {
			return float64(n), nil
		}
		return nil, fail("expected a number, got %T", v)

	case core.TypeTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339, t)
			if err != nil {
				return nil, fail("expected an RFC 3339 timestamp")
			}
			return parsed.UTC(), nil
		}
		return nil, fail("expected a time.Time, got %T", v)

	case core.TypeUUID:
		switch id := v.(type) {
		case uuid.UUID:
			return id.String(), nil
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fail("not a valid UUID")
			}
			return parsed.String(), nil
		}
		return nil, fail("expected a UUID, got %T", v)

	case core.TypeJSON:
		switch raw := v.(type) {
		case string:
			if !json.Valid([]byte(raw)) {
				return nil, fail("not valid JSON")
			}
			return raw, nil
		case json.RawMessage:
			return string(raw), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fail("cannot encode as JSON: %v", err)
		}
		return string(data), nil
	}

	return nil, &core.UnsupportedColumnTypeError{Type: col.Type}
}
