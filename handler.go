package luadecl

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	lua "github.com/yuin/gopher-lua"
)

var (
	lstateType = reflect.TypeFor[*lua.LState]()
	errorType  = reflect.TypeFor[error]()
)

// wrap returns a Lua function that converts the Lua arguments for fn, runs
// it through the interceptors and pushes its results. A leading *lua.LState
// parameter receives the calling state. A trailing error result is raised as
// a Lua error. Extra Lua arguments are ignored and missing ones are nil.
func (r *Runtime) wrap(info *CallInfo, fn any) lua.LGFunction {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("luadecl: %s: expected a function, got %T", info.Name, fn))
	}
	takesState := ft.NumIn() > 0 && ft.In(0) == lstateType
	returnsErr := ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType

	return func(L *lua.LState) int {
		ctx := L.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = newCallContext(ctx, L, info)

		args, err := r.luaArgs(L, ft, takesState)
		if err != nil {
			r.raise(L, info, err)
			return 0
		}

		handler := func(ctx context.Context, args []any) ([]any, error) {
			return r.invoke(L, info, fv, takesState, returnsErr, args)
		}
		var results []any
		if chain := chainInterceptors(r.interceptors); chain != nil {
			results, err = chain(ctx, args, handler)
		} else {
			results, err = handler(ctx, args)
		}
		if err != nil {
			r.raise(L, info, err)
			return 0
		}

		for _, res := range results {
			lv, err := r.toLua(L, reflect.ValueOf(res))
			if err != nil {
				r.raise(L, info, err)
				return 0
			}
			L.Push(lv)
		}
		return len(results)
	}
}

// luaArgs converts the values on the Lua stack to fn's parameter types.
func (r *Runtime) luaArgs(L *lua.LState, ft reflect.Type, takesState bool) ([]any, error) {
	first := 0
	if takesState {
		first = 1
	}
	top := L.GetTop()
	n := ft.NumIn()

	args := make([]any, 0, n)
	pos := 1
	for i := first; i < n; i++ {
		if ft.IsVariadic() && i == n-1 {
			elem := ft.In(i).Elem()
			for ; pos <= top; pos++ {
				v, err := r.fromLua(L, L.Get(pos), elem)
				if err != nil {
					return nil, argumentError(pos, elem, L.Get(pos), err)
				}
				args = append(args, v.Interface())
			}
			break
		}
		v, err := r.fromLua(L, L.Get(pos), ft.In(i))
		if err != nil {
			return nil, argumentError(pos, ft.In(i), L.Get(pos), err)
		}
		args = append(args, v.Interface())
		pos++
	}
	return args, nil
}

// invoke calls fn with args, which interceptors may have replaced.
func (r *Runtime) invoke(L *lua.LState, info *CallInfo, fv reflect.Value, takesState, returnsErr bool, args []any) (results []any, err error) {
	ft := fv.Type()
	in := make([]reflect.Value, 0, len(args)+1)
	if takesState {
		in = append(in, reflect.ValueOf(L))
	}
	for _, a := range args {
		pt := paramType(ft, len(in))
		if pt == nil {
			return nil, Errorf(CodeInvalidArgument, "%s: too many arguments", info.Name)
		}
		if a == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(pt) {
			return nil, Errorf(CodeInvalidArgument, "%s: argument %d: %s is not assignable to %s", info.Name, len(in)+1, v.Type(), pt)
		}
		in = append(in, v)
	}
	if want := ft.NumIn(); ft.IsVariadic() {
		if len(in) < want-1 {
			return nil, Errorf(CodeInvalidArgument, "%s: want at least %d arguments, got %d", info.Name, want-1, len(in))
		}
	} else if len(in) != want {
		return nil, Errorf(CodeInvalidArgument, "%s: want %d arguments, got %d", info.Name, want, len(in))
	}

	defer func() {
		if rec := recover(); rec != nil {
			// Lua errors raised by fn itself keep unwinding.
			if _, ok := rec.(*lua.ApiError); ok {
				panic(rec)
			}
			r.log().Error("PANIC recovered",
				slog.String("function", info.Name),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			results, err = nil, Errorf(CodeInternal, "panic in %s: %v", info.Name, rec)
		}
	}()

	out := fv.Call(in)
	if returnsErr {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	results = make([]any, len(out))
	for i, o := range out {
		results[i] = o.Interface()
	}
	return results, nil
}

// paramType returns the type of the i-th argument, or nil past the end.
func paramType(ft reflect.Type, i int) reflect.Type {
	n := ft.NumIn()
	if ft.IsVariadic() && i >= n-1 {
		return ft.In(n - 1).Elem()
	}
	if i >= n {
		return nil
	}
	return ft.In(i)
}

// raise maps err to an *Error and raises it in L. It does not return.
func (r *Runtime) raise(L *lua.LState, info *CallInfo, err error) {
	var luaErr *Error
	if r.errorTransformer != nil {
		luaErr = r.errorTransformer(err)
	}
	if luaErr == nil {
		luaErr = DefaultErrorTransformer(err)
	}
	r.log().Debug("bound call failed",
		slog.String("function", info.Name),
		slog.String("code", string(luaErr.Code)),
		slog.Any("error", err))
	L.RaiseError("%s", luaErr.Error())
}

func argumentError(pos int, want reflect.Type, got lua.LValue, err error) *ArgumentError {
	if err == errMismatch {
		err = nil
	}
	return &ArgumentError{Position: pos, Want: want.String(), Got: got.Type().String(), Err: err}
}
