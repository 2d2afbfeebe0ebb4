package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/glimte/intercept-go/contracts"
)

// EntryPoint identifies host code as path/to/package.sub[:method]
type EntryPoint struct {
	Path    string
	Package string
	// Method is empty for main-style entry points
	Method string
}

// ParseEntryPoint parses "path/to/package.sub:method". Backslashes are
// accepted as path separators and a trailing ".go" on the package is dropped.
func ParseEntryPoint(s string) (EntryPoint, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), "\\", "/")

	path, rest := "", normalized
	if i := strings.LastIndex(normalized, "/"); i >= 0 {
		path, rest = normalized[:i], normalized[i+1:]
	}
	if rest == "" {
		return EntryPoint{}, fmt.Errorf("%w: %q", contracts.ErrInvalidEntryPoint, s)
	}
	if strings.Count(rest, ":") > 1 {
		return EntryPoint{}, fmt.Errorf("%w: %q has more than one ':'", contracts.ErrInvalidEntryPoint, s)
	}

	pkg, method, _ := strings.Cut(rest, ":")
	pkg = strings.TrimSuffix(pkg, ".go")
	if pkg == "" {
		return EntryPoint{}, fmt.Errorf("%w: cannot run empty package in %q", contracts.ErrInvalidEntryPoint, s)
	}

	return EntryPoint{Path: path, Package: pkg, Method: method}, nil
}

// Key is the registry key: "package" or "package:method"
func (e EntryPoint) Key() string {
	if e.Method == "" {
		return e.Package
	}
	return e.Package + ":" + e.Method
}

func (e EntryPoint) String() string {
	if e.Path == "" {
		return e.Key()
	}
	return e.Path + "/" + e.Key()
}

// EntryFunc is host code run by the runner
type EntryFunc func(ctx context.Context, env *Environment, args []any, kwargs map[string]any) (any, error)

// EntryPoints is the in-process table of runnable host code
type EntryPoints struct {
	mu    sync.RWMutex
	funcs map[string]EntryFunc
}

// NewEntryPoints creates an empty table
func NewEntryPoints() *EntryPoints {
	return &EntryPoints{funcs: make(map[string]EntryFunc)}
}

// Register adds fn under the entry point name. The path part of name is ignored.
func (e *EntryPoints) Register(name string, fn EntryFunc) error {
	ep, err := ParseEntryPoint(name)
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: nil function for %s", contracts.ErrInvalidEntryPoint, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[ep.Key()] = fn
	return nil
}

// MustRegister is Register for package initialization; it panics on error
func (e *EntryPoints) MustRegister(name string, fn EntryFunc) {
	if err := e.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered for ep
func (e *EntryPoints) Lookup(ep EntryPoint) (EntryFunc, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	fn, ok := e.funcs[ep.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrEntryPointNotFound, ep)
	}
	return fn, nil
}

// Names returns the registered keys, sorted
func (e *EntryPoints) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.funcs))
	for k := range e.funcs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
