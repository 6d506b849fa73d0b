// Package luadecl binds Go classes, modules and functions onto an embedded
// Lua VM. The same ir.UserData and ir.Module implementations that describe
// definition files drive the live binding, so the generated annotations and
// the runtime stay in step.
package luadecl

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/broady/luadecl/luagen/ir"
)

// Runtime owns a Lua state and the Go values bound into it.
// A Runtime is not safe for concurrent use, matching *lua.LState.
type Runtime struct {
	L *lua.LState

	classes          map[reflect.Type]*classBinding
	modules          []boundModule
	interceptors     []Interceptor
	errorTransformer ErrorTransformer
	logger           *slog.Logger
}

// New creates a Runtime with a fresh Lua state and the standard libraries
// opened.
func New() *Runtime {
	return NewWithState(lua.NewState())
}

// NewWithState wraps an existing Lua state. Close closes it.
func NewWithState(L *lua.LState) *Runtime {
	return &Runtime{
		L:       L,
		classes: make(map[reflect.Type]*classBinding),
	}
}

// WithInterceptor adds an interceptor run around every bound call.
// Interceptors execute in the order they were added.
func (r *Runtime) WithInterceptor(i Interceptor) *Runtime {
	r.interceptors = append(r.interceptors, i)
	return r
}

// WithErrorTransformer sets how errors from bound functions are mapped to
// Lua errors.
func (r *Runtime) WithErrorTransformer(fn ErrorTransformer) *Runtime {
	r.errorTransformer = fn
	return r
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func (r *Runtime) WithLogger(logger *slog.Logger) *Runtime {
	r.logger = logger
	return r
}

func (r *Runtime) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// Close closes the Lua state.
func (r *Runtime) Close() {
	r.L.Close()
}

// SetGlobal converts v and stores it as the global name.
func (r *Runtime) SetGlobal(name string, v any) error {
	lv, err := r.toLua(r.L, reflect.ValueOf(v))
	if err != nil {
		return fmt.Errorf("set global %s: %w", name, err)
	}
	r.L.SetGlobal(name, lv)
	return nil
}

// SetGlobalFunction binds the Go function fn as the global name.
func (r *Runtime) SetGlobalFunction(name string, fn any) error {
	if t := reflect.TypeOf(fn); t == nil || t.Kind() != reflect.Func {
		return fmt.Errorf("set global function %s: expected a function, got %T", name, fn)
	}
	r.L.SetGlobal(name, r.L.NewFunction(r.wrap(&CallInfo{Name: name, Kind: KindFunction}, fn)))
	return nil
}

// Global returns the global name, or lua.LNil.
func (r *Runtime) Global(name string) lua.LValue {
	return r.L.GetGlobal(name)
}

// Require resolves a dotted path such as "string.format" starting from the
// globals.
func (r *Runtime) Require(path string) (lua.LValue, error) {
	return RequireFrom(r.L.G.Global, path)
}

// RequireFrom resolves a dotted path starting from tbl. Empty segments are
// skipped. Every segment but the last must name a table.
func RequireFrom(tbl *lua.LTable, path string) (lua.LValue, error) {
	var segments []string
	for _, s := range strings.Split(path, ".") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return lua.LNil, fmt.Errorf("module not found: %q", path)
	}

	current := tbl
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current.RawGetString(seg).(*lua.LTable)
		if !ok {
			return lua.LNil, fmt.Errorf("module not found: %q: %s is not a table", path, seg)
		}
		current = next
	}
	return current.RawGetString(segments[len(segments)-1]), nil
}

// DoString runs src. ctx is visible to bound functions through the Lua
// state and cancels the script when done.
func (r *Runtime) DoString(ctx context.Context, src string) error {
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()
	return r.L.DoString(src)
}

// DoFile runs the Lua file at path.
func (r *Runtime) DoFile(ctx context.Context, path string) error {
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()
	return r.L.DoFile(path)
}

// Definitions describes everything bound with RegisterClass and
// RegisterModule: classes sorted by name, then modules in registration
// order.
func (r *Runtime) Definitions() *ir.DefinitionBuilder {
	def := ir.NewDefinition()
	for _, c := range r.sortedClasses() {
		def.RegisterClass(c.source)
	}
	for _, m := range r.modules {
		def.Module(m.name, m.module)
	}
	return def
}
