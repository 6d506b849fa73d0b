// Package middleware provides interceptors for bound Go functions.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/broady/luadecl"
)

// LoggingInterceptor creates an interceptor that logs calls from Lua using
// slog. It logs the start and end of each call, including duration and
// error status.
func LoggingInterceptor(logger *slog.Logger) luadecl.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, args []any, next luadecl.HandlerFunc) ([]any, error) {
		name, kind := "unknown", ""
		if info, ok := luadecl.CallFromContext(ctx); ok {
			name, kind = info.Name, string(info.Kind)
		}
		start := time.Now()

		logger.DebugContext(ctx, "call started",
			slog.String("function", name),
			slog.String("kind", kind),
			slog.Int("args", len(args)),
		)

		res, err := next(ctx, args)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "call failed",
				slog.String("function", name),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "call completed",
				slog.String("function", name),
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}
