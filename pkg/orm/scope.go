package orm

import (
	"fmt"

	"github.com/leapstack-labs/leaporm/pkg/core"
)

// maxScopeDepth bounds scopes invoking scopes, catching accidental recursion.
const maxScopeDepth = 32

// ResolutionKind tags the outcome of resolving a name against a model.
type ResolutionKind int

const (
	Unresolved ResolutionKind = iota
	ResolvedScope
	ResolvedBuiltin
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedScope:
		return "scope"
	case ResolvedBuiltin:
		return "builtin"
	default:
		return "unresolved"
	}
}

// Resolution is the result of Resolve. Exactly one of Scope or Verb is set
// unless Kind is Unresolved.
type Resolution struct {
	Kind  ResolutionKind
	Name  string
	Scope ScopeFunc
	Verb  *Verb
}

// Resolve looks name up on the model first and on the built-in verbs second,
// so a scope always shadows a verb of the same name.
func Resolve(m *Model, name string) Resolution {
	if m.HasScope(name) {
		return Resolution{Kind: ResolvedScope, Name: name, Scope: m.scopes[name]}
	}
	if v, ok := LookupVerb(name); ok {
		return Resolution{Kind: ResolvedBuiltin, Name: name, Verb: v}
	}
	return Resolution{Kind: Unresolved, Name: name}
}

// Invoke is the single dynamic entry point for chaining by name.
//
// A scope runs against a fresh nested query with args; the nested snapshots
// are copied, tagged with OriginScope = name and appended to q. A verb records
// its own snapshot. Any failure is returned as *core.ScopeResolutionError,
// nothing from the failing call is folded in, and the query keeps the error.
func (q *Query) Invoke(name string, args ...any) (*Query, error) {
	if q.err != nil {
		return q, q.err
	}

	res := Resolve(q.model, name)
	switch res.Kind {
	case ResolvedScope:
		if q.depth >= maxScopeDepth {
			return q, q.fail(name, fmt.Errorf("scopes nested deeper than %d levels", maxScopeDepth))
		}
		inner := q.nested()
		if err := res.Scope(inner, args...); err != nil {
			return q, q.fail(name, err)
		}
		if inner.err != nil {
			return q, q.fail(name, inner.err)
		}
		entries := inner.acc.Snapshots()
		for i := range entries {
			entries[i].OriginScope = name
		}
		q.acc.Append(entries...)
		return q, nil

	case ResolvedBuiltin:
		if err := q.record(res.Verb, args); err != nil {
			q.err = nil
			return q, q.fail(name, err)
		}
		return q, nil

	default:
		return q, q.fail(name, core.ErrUnknownScope)
	}
}

func (q *Query) fail(name string, err error) error {
	q.err = &core.ScopeResolutionError{Model: q.model.name, Scope: name, Err: err}
	return q.err
}
