package errorx

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "config", err: New(CodeConfig, "SUPABASE_DB_URL environment variable not provided"), want: 2},
		{name: "exec", err: Wrap(cause, CodeExec, "connect"), want: 1},
		{name: "drift", err: New(CodeDrift, "schema is partial"), want: 3},
		{name: "untagged", err: cause, want: 1},
		{name: "wrapped config", err: fmt.Errorf("db reset: %w", New(CodeConfig, "missing")), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New(`extension "pgcrypto" is not available`)
	err := Wrapf(cause, CodeExec, "statement %d (%s)", 2, "extension pgcrypto")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause")
	}
	want := `statement 2 (extension pgcrypto): extension "pgcrypto" is not available`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestIsConfig(t *testing.T) {
	if !IsConfig(Newf(CodeConfig, "%s not set", "SUPABASE_DB_URL")) {
		t.Error("expected config error")
	}
	if IsConfig(New(CodeExec, "boom")) {
		t.Error("exec error reported as config error")
	}
	if IsConfig(nil) {
		t.Error("nil reported as config error")
	}
}
