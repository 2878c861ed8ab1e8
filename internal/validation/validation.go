package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/julianstephens/habitpact/internal/errors"
)

// Validator checks model structs against their validate tags and reports
// failures as field messages, one per field, in declaration order.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

var defaultValidator = New()

// Struct validates s with the package default Validator
func Struct(s any) error {
	return defaultValidator.Struct(s)
}

// Struct returns an apperrors validation error listing every failing
// field, or nil when s is valid.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:   fe.Field(),
			Message: Message(fe.Field(), fe.Tag(), fe.Param()),
		})
		// A blank value also fails any format rule on the field
		if fe.Tag() == "required" && hasFormatRule(s, fe.StructField()) {
			fields = append(fields, apperrors.FieldError{
				Field:   fe.Field(),
				Message: Message(fe.Field(), "format", ""),
			})
		}
	}
	return apperrors.Validation(fields...)
}

var formatRules = map[string]bool{
	"email": true,
	"url":   true,
	"uuid":  true,
}

func hasFormatRule(s any, field string) bool {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	f, ok := t.FieldByName(field)
	if !ok {
		return false
	}
	for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
		if formatRules[rule] {
			return true
		}
	}
	return false
}

// Message renders the user-facing text for a failed rule on field
func Message(field, tag, param string) string {
	name := Humanize(field)
	switch tag {
	case "required":
		return name + " can't be blank"
	case "gtefield":
		return name + " must be on or after " + strings.ToLower(Humanize(param))
	default:
		return name + " is invalid"
	}
}

// Humanize turns a snake_case or CamelCase field name into a sentence
// fragment: "recipient_email" and "RecipientEmail" become "Recipient email".
func Humanize(field string) string {
	field = strings.TrimSuffix(field, "_id")
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for i, r := range field {
		switch {
		case r == '_' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z' && i > 0:
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	if len(words) == 0 {
		return ""
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
