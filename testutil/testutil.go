// Package testutil provides testing helpers for bound Go functions and
// generated definition files.
package testutil

import (
	"context"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/broady/luadecl"
	"github.com/broady/luadecl/luagen"
	"github.com/broady/luadecl/luagen/ir"
)

// Script helps run Lua snippets against a runtime with a fluent API.
type Script struct {
	rt      *luadecl.Runtime
	ctx     context.Context
	globals map[string]any
	src     string
}

// NewScript starts a script for rt.
func NewScript(rt *luadecl.Runtime) *Script {
	return &Script{rt: rt, ctx: context.Background(), globals: make(map[string]any)}
}

// WithContext sets the context the script runs under.
func (s *Script) WithContext(ctx context.Context) *Script {
	s.ctx = ctx
	return s
}

// WithGlobal sets a global before the script runs.
func (s *Script) WithGlobal(name string, v any) *Script {
	s.globals[name] = v
	return s
}

// Source sets the Lua source.
func (s *Script) Source(src string) *Script {
	s.src = src
	return s
}

// Run executes the script and returns the error, if any.
func (s *Script) Run(t *testing.T) error {
	t.Helper()
	for name, v := range s.globals {
		if err := s.rt.SetGlobal(name, v); err != nil {
			t.Fatalf("set global %s: %v", name, err)
		}
	}
	return s.rt.DoString(s.ctx, s.src)
}

// MustRun executes the script and fails the test on error.
func (s *Script) MustRun(t *testing.T) {
	t.Helper()
	if err := s.Run(t); err != nil {
		t.Fatalf("lua error: %v\nsource:\n%s", err, s.src)
	}
}

// Eval evaluates a single Lua expression.
func Eval(t *testing.T, rt *luadecl.Runtime, expr string) lua.LValue {
	t.Helper()
	NewScript(rt).Source("__eval = " + expr).MustRun(t)
	v := rt.Global("__eval")
	rt.L.SetGlobal("__eval", lua.LNil)
	return v
}

// AssertEval checks that expr evaluates to a value whose string form is want.
func AssertEval(t *testing.T, rt *luadecl.Runtime, expr, want string) {
	t.Helper()
	if got := Eval(t, rt, expr); got.String() != want {
		t.Errorf("%s = %s, want %s", expr, got.String(), want)
	}
}

// AssertLuaError checks that err is a Lua error raised with code whose
// message contains msg.
func AssertLuaError(t *testing.T, err error, code luadecl.ErrorCode, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	want := string(code) + ": " + msg
	if !strings.Contains(err.Error(), want) {
		t.Errorf("expected error containing %q, got %q", want, err.Error())
	}
}

// NewCallContext creates a context carrying call metadata, as bound
// functions see it. Useful when testing interceptors directly.
func NewCallContext(ctx context.Context, name string, kind luadecl.CallKind) context.Context {
	return luadecl.WithCallInfo(ctx, &luadecl.CallInfo{Name: name, Kind: kind})
}

// Generate renders defs in memory and fails the test on error. It returns
// the file contents keyed by file name.
func Generate(t *testing.T, defs *ir.DefinitionsBuilder) map[string]string {
	t.Helper()
	result, err := luagen.FromBuilder(defs).CheckSyntax().Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	files := make(map[string]string, len(result.Files))
	for _, f := range result.Files {
		files[f.Path] = string(f.Content)
	}
	return files
}

// AssertParses checks that src is syntactically valid Lua.
func AssertParses(t *testing.T, name, src string) {
	t.Helper()
	if _, err := parse.Parse(strings.NewReader(src), name); err != nil {
		t.Errorf("%s does not parse: %v\n%s", name, err, src)
	}
}
