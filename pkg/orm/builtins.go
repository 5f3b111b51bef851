package orm

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Built-in recorded operations.
const (
	OpWhere        = "where"
	OpWhereNot     = "whereNot"
	OpWhereIn      = "whereIn"
	OpWhereNull    = "whereNull"
	OpWhereNotNull = "whereNotNull"
	OpOrderBy      = "orderBy"
	OpLimit        = "limit"
	OpOffset       = "offset"
	OpSelect       = "select"
)

var (
	// ErrInvalidArguments is returned when a verb is called with arguments of the wrong shape.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrWriteFilter is returned when Update or Delete follows a non-filter operation.
	ErrWriteFilter = errors.New("only where-family operations may precede a write")
)

// Verb is a built-in query operation. Its argument adapter normalizes the
// caller's arguments into the form recorded on the snapshot.
type Verb struct {
	Name string

	// Filter is true for the where family, the only operations allowed on writes.
	Filter bool

	adapt func(name string, args []any) ([]any, error)
}

var verbs = map[string]*Verb{
	OpWhere:        {Name: OpWhere, Filter: true, adapt: adaptWhere},
	OpWhereNot:     {Name: OpWhereNot, Filter: true, adapt: adaptWhere},
	OpWhereIn:      {Name: OpWhereIn, Filter: true, adapt: adaptWhereIn},
	OpWhereNull:    {Name: OpWhereNull, Filter: true, adapt: adaptField},
	OpWhereNotNull: {Name: OpWhereNotNull, Filter: true, adapt: adaptField},
	OpOrderBy:      {Name: OpOrderBy, adapt: adaptOrderBy},
	OpLimit:        {Name: OpLimit, adapt: adaptCount},
	OpOffset:       {Name: OpOffset, adapt: adaptCount},
	OpSelect:       {Name: OpSelect, adapt: adaptSelect},
}

// LookupVerb returns the built-in verb with the given name.
func LookupVerb(name string) (*Verb, bool) {
	v, ok := verbs[name]
	return v, ok
}

// Verbs returns the names of all built-in verbs, sorted.
func Verbs() []string {
	names := make([]string, 0, len(verbs))
	for n := range verbs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// comparison operators accepted by where/whereNot
var operators = map[string]string{
	"=": "=", "!=": "!=", "<>": "<>",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"like": "LIKE",
}

func invalid(verb, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", verb, ErrInvalidArguments, fmt.Sprintf(format, args...))
}

func adaptWhere(name string, args []any) ([]any, error) {
	switch len(args) {
	case 1:
		m, ok := args[0].(map[string]any)
		if !ok || len(m) == 0 {
			return nil, invalid(name, "expected a non-empty map[string]any, got %T", args[0])
		}
		cp := make(map[string]any, len(m))
		for k, v := range m {
			cp[k] = v
		}
		return []any{cp}, nil
	case 2:
		field, ok := args[0].(string)
		if !ok || field == "" {
			return nil, invalid(name, "field must be a non-empty string")
		}
		return []any{field, args[1]}, nil
	case 3:
		field, ok := args[0].(string)
		if !ok || field == "" {
			return nil, invalid(name, "field must be a non-empty string")
		}
		op, ok := args[1].(string)
		if !ok {
			return nil, invalid(name, "operator must be a string")
		}
		op = strings.ToLower(op)
		if _, known := operators[op]; !known {
			return nil, invalid(name, "unknown operator %q", op)
		}
		if args[2] == nil && op != "=" && op != "!=" && op != "<>" {
			return nil, invalid(name, "operator %q cannot compare with null", op)
		}
		return []any{field, op, args[2]}, nil
	default:
		return nil, invalid(name, "expected (map), (field, value) or (field, op, value), got %d arguments", len(args))
	}
}

func adaptWhereIn(name string, args []any) ([]any, error) {
	if len(args) != 2 {
		return nil, invalid(name, "expected (field, values), got %d arguments", len(args))
	}
	field, ok := args[0].(string)
	if !ok || field == "" {
		return nil, invalid(name, "field must be a non-empty string")
	}
	values, ok := toSlice(args[1])
	if !ok {
		return nil, invalid(name, "values must be a slice, got %T", args[1])
	}
	return []any{field, values}, nil
}

func adaptField(name string, args []any) ([]any, error) {
	if len(args) != 1 {
		return nil, invalid(name, "expected (field), got %d arguments", len(args))
	}
	field, ok := args[0].(string)
	if !ok || field == "" {
		return nil, invalid(name, "field must be a non-empty string")
	}
	return []any{field}, nil
}

func adaptOrderBy(name string, args []any) ([]any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, invalid(name, "expected (field) or (field, direction), got %d arguments", len(args))
	}
	field, ok := args[0].(string)
	if !ok || field == "" {
		return nil, invalid(name, "field must be a non-empty string")
	}
	dir := "asc"
	if len(args) == 2 {
		s, ok := args[1].(string)
		if !ok {
			return nil, invalid(name, "direction must be a string")
		}
		dir = strings.ToLower(s)
		if dir != "asc" && dir != "desc" {
			return nil, invalid(name, "direction must be asc or desc, got %q", s)
		}
	}
	return []any{field, dir}, nil
}

func adaptCount(name string, args []any) ([]any, error) {
	if len(args) != 1 {
		return nil, invalid(name, "expected one integer, got %d arguments", len(args))
	}
	n, ok := toInt(args[0])
	if !ok || n < 0 {
		return nil, invalid(name, "expected a non-negative integer, got %v", args[0])
	}
	return []any{n}, nil
}

func adaptSelect(name string, args []any) ([]any, error) {
	if len(args) == 0 {
		return nil, invalid(name, "expected at least one field")
	}
	out := make([]any, len(args))
	for i, a := range args {
		s, ok := a.(string)
		if !ok || s == "" {
			return nil, invalid(name, "fields must be non-empty strings, got %v", a)
		}
		out[i] = s
	}
	return out, nil
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return append([]any{}, s...), true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

var (
	errNotInteger = errors.New("not an integer")
	errIntRange   = errors.New("out of range for a 64-bit integer")
)

// toInt64 converts integral values, including whole floats. Unsigned and
// float values beyond the int64 range yield errIntRange.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, errIntRange
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, errIntRange
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, errNotInteger
		}
		// -2^63 is exact in float64; 2^63 is the first value past MaxInt64
		if n < math.MinInt64 || n >= 1<<63 {
			return 0, errIntRange
		}
		return int64(n), nil
	}
	return 0, errNotInteger
}

func toInt(v any) (int, bool) {
	n, err := toInt64(v)
	if err != nil || n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}
