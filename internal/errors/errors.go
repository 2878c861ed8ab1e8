package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/habitpact/internal/logger"
)

// Kind classifies an application error
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidState
	KindValidation
	KindTransient
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_failed"
	case KindTransient:
		return "transient_storage_error"
	case KindConsistency:
		return "consistency_violation"
	default:
		return "unknown"
	}
}

// FieldError is a single field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed error returned across package boundaries
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case len(e.Fields) > 0:
		return strings.Join(e.Messages(), "; ")
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Messages returns the field messages in the order they were recorded
func (e *Error) Messages() []string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

// NotFound reports that an entity id does not resolve
func NotFound(entity, id string) error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Couldn't find %s with 'id'=%s", entity, id),
	}
}

// InvalidState reports a transition attempted from a terminal state
func InvalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Validation reports one or more field-level failures
func Validation(fields ...FieldError) error {
	return &Error{Kind: KindValidation, Fields: fields}
}

// Transient wraps a storage failure that may succeed on retry
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Message: "transient storage error", Err: err}
}

// Consistency wraps a failure inside an atomic multi-entity step
func Consistency(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindConsistency, Message: "consistency violation", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err carries KindNotFound
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidState reports whether err carries KindInvalidState
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }

// IsValidation reports whether err carries KindValidation
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConsistency reports whether err carries KindConsistency
func IsConsistency(err error) bool { return KindOf(err) == KindConsistency }

// IsTransient reports whether any error in err's chain is transient.
// A consistency failure caused by a transient one is still transient.
func IsTransient(err error) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == KindTransient {
			return true
		}
		err = e.Err
	}
	return false
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err, "kind", KindOf(err))
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
