package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leaporm/pkg/orm"
	"go.starlark.net/starlark"
)

// query methods and the chain call each one records
var queryMethods = map[string]string{
	"where":          orm.OpWhere,
	"where_not":      orm.OpWhereNot,
	"where_in":       orm.OpWhereIn,
	"where_null":     orm.OpWhereNull,
	"where_not_null": orm.OpWhereNotNull,
	"order_by":       orm.OpOrderBy,
	"limit":          orm.OpLimit,
	"offset":         orm.OpOffset,
	"select":         orm.OpSelect,
}

// Query exposes an *orm.Query to scripts as the "q" parameter.
// Every method returns the same value so calls chain.
type Query struct {
	q *orm.Query
}

var _ starlark.HasAttrs = (*Query)(nil)

// NewQuery wraps q.
func NewQuery(q *orm.Query) *Query { return &Query{q: q} }

func (v *Query) String() string        { return fmt.Sprintf("<query %s>", v.q.Model().Name()) }
func (v *Query) Type() string          { return "query" }
func (v *Query) Freeze()               {}
func (v *Query) Truth() starlark.Bool  { return starlark.True }
func (v *Query) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: query") }

// Attr returns a bound method or the "model" name.
func (v *Query) Attr(name string) (starlark.Value, error) {
	if name == "model" {
		return starlark.String(v.q.Model().Name()), nil
	}
	if name == "scope" {
		return starlark.NewBuiltin("scope", v.scope).BindReceiver(v), nil
	}
	op, ok := queryMethods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		return v.invoke(op, args)
	}).BindReceiver(v), nil
}

// AttrNames lists the methods available on q.
func (v *Query) AttrNames() []string {
	names := make([]string, 0, len(queryMethods)+2)
	for name := range queryMethods {
		names = append(names, name)
	}
	names = append(names, "model", "scope")
	sort.Strings(names)
	return names
}

func (v *Query) scope(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing scope name", b.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: scope name must be a string, got %s", b.Name(), args[0].Type())
	}
	return v.invoke(name, args[1:])
}

func (v *Query) invoke(name string, args starlark.Tuple) (starlark.Value, error) {
	goArgs := make([]any, len(args))
	for i, a := range args {
		g, err := ToGo(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		goArgs[i] = g
	}
	if _, err := v.q.Invoke(name, goArgs...); err != nil {
		return nil, err
	}
	return v, nil
}
