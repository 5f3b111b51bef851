package starlark

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/orm"
	"go.starlark.net/starlark"
)

// ScopeLoader reads model scopes from <dir>/<model>.star files.
//
// Every top-level function not starting with "_" becomes a scope of the
// same name, called as fn(q, *args). The file for model "BlogPost" is
// looked up as BlogPost.star and then blog_post.star.
type ScopeLoader struct {
	dir    string
	target *TargetInfo
	pool   *ThreadPool
	logger *slog.Logger
}

// NewScopeLoader creates a loader for dir. target may be nil.
func NewScopeLoader(dir string, target *TargetInfo, logger *slog.Logger) *ScopeLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ScopeLoader{
		dir:    dir,
		target: target,
		pool:   NewThreadPool(0, logger),
		logger: logger,
	}
}

// LoadError represents an error loading a scope file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("scopes/%s: %s", filepath.Base(e.File), e.Message)
}

// Path returns the scope file for model, or "" when none exists.
func (l *ScopeLoader) Path(model string) string {
	if l.dir == "" {
		return ""
	}
	for _, name := range []string{model, core.SnakeCase(model)} {
		path := filepath.Join(l.dir, name+".star")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Scopes loads the scope functions for model. A missing file yields no scopes.
func (l *ScopeLoader) Scopes(model string) (map[string]orm.ScopeFunc, error) {
	path := l.Path(model)
	if path == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // G304: path is built from the configured scopes directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	predeclared := starlark.StringDict{"target": starlark.None}
	if l.target != nil {
		predeclared["target"] = l.target.ToStarlark()
	}

	thread := l.pool.Get("load:" + model)
	globals, err := starlark.ExecFile(thread, path, content, predeclared) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	l.pool.Put(thread)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}
	// frozen globals may be shared by concurrent calls
	globals.Freeze()

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	scopes := make(map[string]orm.ScopeFunc)
	for _, name := range names {
		fn, ok := globals[name].(*starlark.Function)
		if !ok || strings.HasPrefix(name, "_") {
			continue
		}
		if fn.NumParams() == 0 && !fn.HasVarargs() {
			return nil, &LoadError{File: path, Message: fmt.Sprintf("scope %s must accept the query as its first parameter", name)}
		}
		scopes[name] = l.scopeFunc(model, name, fn)
	}

	l.logger.Debug("loaded starlark scopes",
		slog.String("model", model),
		slog.String("file", path),
		slog.Int("count", len(scopes)))
	return scopes, nil
}

func (l *ScopeLoader) scopeFunc(model, name string, fn *starlark.Function) orm.ScopeFunc {
	return func(q *orm.Query, args ...any) error {
		callArgs := make(starlark.Tuple, 0, len(args)+1)
		callArgs = append(callArgs, NewQuery(q))
		for i, a := range args {
			sv, err := GoToStarlark(a)
			if err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
			callArgs = append(callArgs, sv)
		}

		thread := l.pool.Get(model + "." + name)
		defer l.pool.Put(thread)

		_, err := starlark.Call(thread, fn, callArgs, nil)
		return err
	}
}
