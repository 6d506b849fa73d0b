package luadecl

import (
	"context"
)

// HandlerFunc represents the next handler in an interceptor chain.
// args are the converted Go arguments, self included; results are the Go
// results without the trailing error.
type HandlerFunc func(ctx context.Context, args []any) (results []any, err error)

// Interceptor is a hook that wraps every call from Lua into a bound Go
// function.
//
//	func timing(ctx context.Context, args []any, next luadecl.HandlerFunc) ([]any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, args)
//	    info, _ := luadecl.CallFromContext(ctx)
//	    log.Printf("%s took %v", info.Name, time.Since(start))
//	    return res, err
//	}
//
// Interceptors can inspect or replace the arguments and results, or
// short-circuit by returning an error without calling next.
type Interceptor func(ctx context.Context, args []any, next HandlerFunc) ([]any, error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []Interceptor) Interceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx context.Context, args []any, handler HandlerFunc) ([]any, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(ctx context.Context, args []any) ([]any, error) {
				return current(ctx, args, next)
			}
		}
		return chain(ctx, args)
	}
}
