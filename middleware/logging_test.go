package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/broady/luadecl"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func callContext() context.Context {
	return luadecl.WithCallInfo(context.Background(), &luadecl.CallInfo{
		Name: "Greeter.greet",
		Kind: luadecl.KindMethod,
	})
}

func TestLoggingInterceptor_Success(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newLogger(&buf))

	handler := func(ctx context.Context, args []any) ([]any, error) {
		return []any{"hello"}, nil
	}

	result, err := interceptor(callContext(), []any{"world"}, handler)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0] != "hello" {
		t.Errorf("expected [hello], got %v", result)
	}

	logOutput := buf.String()
	for _, want := range []string{"call started", "call completed", "Greeter.greet", `"kind":"method"`} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("expected %q in log output:\n%s", want, logOutput)
		}
	}
}

func TestLoggingInterceptor_Error(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newLogger(&buf))

	testErr := errors.New("test error")
	handler := func(ctx context.Context, args []any) ([]any, error) {
		return nil, testErr
	}

	result, err := interceptor(callContext(), nil, handler)
	if err != testErr {
		t.Errorf("expected test error, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %v", result)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "call failed") {
		t.Error("expected 'call failed' in log output")
	}
	if !strings.Contains(logOutput, "test error") {
		t.Error("expected error message in log output")
	}
	if strings.Contains(logOutput, "call completed") {
		t.Error("did not expect 'call completed' in log output")
	}
}

func TestLoggingInterceptor_NoCallInfo(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newLogger(&buf))

	_, err := interceptor(context.Background(), nil, func(ctx context.Context, args []any) ([]any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"function":"unknown"`) {
		t.Errorf("expected unknown function in log output:\n%s", buf.String())
	}
}

func TestLoggingInterceptor_NilLogger(t *testing.T) {
	interceptor := LoggingInterceptor(nil)
	if interceptor == nil {
		t.Fatal("expected interceptor, got nil")
	}
}

func TestLoggingInterceptor_Runtime(t *testing.T) {
	var buf bytes.Buffer
	rt := luadecl.New().WithInterceptor(LoggingInterceptor(newLogger(&buf)))
	defer rt.Close()

	if err := rt.SetGlobalFunction("double", func(n int) int { return n * 2 }); err != nil {
		t.Fatal(err)
	}
	if err := rt.DoString(context.Background(), "result = double(21)"); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := rt.Global("result").String(); got != "42" {
		t.Errorf("result = %s, want 42", got)
	}
	if !strings.Contains(buf.String(), `"function":"double"`) {
		t.Errorf("expected double in log output:\n%s", buf.String())
	}
}
