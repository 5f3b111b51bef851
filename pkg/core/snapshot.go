package core

import "reflect"

// Snapshot is the recorded form of one applied query operation.
// Snapshots are replayed in insertion order when a query executes.
type Snapshot struct {
	Operation string
	Arguments []any

	// OriginScope names the scope that contributed this entry.
	// Empty when the operation was recorded directly on the query.
	OriginScope string
}

// Clone returns a deep copy of s. Slices and maps among the arguments,
// at any depth, are copied so the clone shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Arguments != nil {
		out.Arguments = make([]any, len(s.Arguments))
		for i, a := range s.Arguments {
			out.Arguments[i] = cloneValue(a)
		}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			setCloned(out.Index(i), rv.Index(i))
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elem := reflect.New(rv.Type().Elem()).Elem()
			setCloned(elem, iter.Value())
			out.SetMapIndex(iter.Key(), elem)
		}
		return out.Interface()
	}
	return v
}

// setCloned stores a clone of src into dst, which has src's static type.
func setCloned(dst, src reflect.Value) {
	if src.Kind() == reflect.Interface && src.IsNil() {
		return
	}
	c := cloneValue(src.Interface())
	if c == nil {
		return
	}
	dst.Set(reflect.ValueOf(c))
}
