package luadecl

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

type contextKey struct {
	name string
}

var (
	callInfoKey = &contextKey{"call_info"}
	stateKey    = &contextKey{"state"}
)

// CallKind tells how a bound function was registered.
type CallKind string

const (
	KindFunction     CallKind = "function"
	KindMethod       CallKind = "method"
	KindMetaFunction CallKind = "meta_function"
	KindMetaMethod   CallKind = "meta_method"
	KindGetter       CallKind = "getter"
	KindSetter       CallKind = "setter"
)

// CallInfo describes the bound function being called.
type CallInfo struct {
	// Name is the qualified Lua name, e.g. "Greeter.greet" or "stats.reset".
	Name string
	Kind CallKind
}

// CallFromContext returns the call being intercepted.
func CallFromContext(ctx context.Context) (*CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey).(*CallInfo)
	return info, ok
}

// StateFromContext returns the Lua state that made the call.
func StateFromContext(ctx context.Context) *lua.LState {
	if L, ok := ctx.Value(stateKey).(*lua.LState); ok {
		return L
	}
	return nil
}

// WithCallInfo returns a copy of ctx carrying info, for driving
// interceptors outside a Lua call.
func WithCallInfo(ctx context.Context, info *CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey, info)
}

func newCallContext(ctx context.Context, L *lua.LState, info *CallInfo) context.Context {
	ctx = WithCallInfo(ctx, info)
	ctx = context.WithValue(ctx, stateKey, L)
	return ctx
}
