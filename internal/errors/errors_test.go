package errors

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "not found error",
			err:      NotFound("Invitation", "500"),
			expected: "Error: Couldn't find Invitation with 'id'=500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	result := Formatf("connection to %s:%d failed", "localhost", 5432)
	if result != "Error: connection to localhost:5432 failed" {
		t.Errorf("Formatf() = %q", result)
	}
}

func TestKindOf(t *testing.T) {
	base := errors.New("disk I/O error")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain error", err: base, want: KindUnknown},
		{name: "not found", err: NotFound("Log", "1"), want: KindNotFound},
		{name: "invalid state", err: InvalidState("Invitation has already been %s", "accepted"), want: KindInvalidState},
		{name: "validation", err: Validation(FieldError{Field: "email", Message: "Email is invalid"}), want: KindValidation},
		{name: "transient", err: Transient(base), want: KindTransient},
		{name: "consistency", err: Consistency(base), want: KindConsistency},
		{name: "wrapped not found", err: fmt.Errorf("accept: %w", NotFound("Invitation", "9")), want: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("database is locked")

	if !IsTransient(Transient(base)) {
		t.Error("Transient() should be transient")
	}
	if !IsTransient(Consistency(Transient(base))) {
		t.Error("consistency failure caused by a transient error should be transient")
	}
	if !IsTransient(fmt.Errorf("plan p1: %w", Transient(base))) {
		t.Error("wrapped transient error should be transient")
	}
	if IsTransient(Consistency(base)) {
		t.Error("consistency failure with a plain cause should not be transient")
	}
	if IsTransient(base) {
		t.Error("plain error should not be transient")
	}
	if Transient(nil) != nil || Consistency(nil) != nil {
		t.Error("wrapping nil should return nil")
	}
	if !errors.Is(Transient(base), base) {
		t.Error("Transient() should unwrap to its cause")
	}
}

func TestValidationMessagesKeepOrder(t *testing.T) {
	err := Validation(
		FieldError{Field: "start_date", Message: "Start date can't be blank"},
		FieldError{Field: "end_date", Message: "End date can't be blank"},
	)

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	msgs := appErr.Messages()
	if len(msgs) != 2 || msgs[0] != "Start date can't be blank" || msgs[1] != "End date can't be blank" {
		t.Errorf("Messages() = %v", msgs)
	}
	if err.Error() != "Start date can't be blank; End date can't be blank" {
		t.Errorf("Error() = %q", err.Error())
	}
}

// TestFatal tests the Fatal function using exec helper process
func TestFatal(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL") == "1" {
		Fatal(errors.New("test error"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal$")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		if e.ExitCode() != 1 {
			t.Errorf("Fatal() exit code = %d, want 1", e.ExitCode())
		}
		if !strings.Contains(stderr.String(), "Error: test error") {
			t.Errorf("Fatal() stderr = %q, want to contain %q", stderr.String(), "Error: test error")
		}
	} else {
		t.Errorf("Fatal() did not exit with error: %v", err)
	}
}

// TestFatal_NilError tests that Fatal does nothing when passed a nil error
func TestFatal_NilError(t *testing.T) {
	if os.Getenv("GO_TEST_FATAL_NIL") == "1" {
		Fatal(nil)
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFatal_NilError")
	cmd.Env = append(os.Environ(), "GO_TEST_FATAL_NIL=1")

	if err := cmd.Run(); err != nil {
		t.Errorf("Fatal(nil) should not exit, but got error: %v", err)
	}
}
