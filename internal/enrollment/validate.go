package enrollment

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FieldError describes one invalid identity field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists the identity fields that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid identity: " + strings.Join(msgs, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func identityValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// NormalizeIdentity trims surrounding whitespace from every field.
func NormalizeIdentity(id recognition.Identity) recognition.Identity {
	return recognition.Identity{
		EmployeeCode: strings.TrimSpace(id.EmployeeCode),
		FullName:     strings.TrimSpace(id.FullName),
		Email:        strings.TrimSpace(id.Email),
		Phone:        strings.TrimSpace(id.Phone),
		Department:   strings.TrimSpace(id.Department),
		Position:     strings.TrimSpace(id.Position),
	}
}

// ValidateIdentity checks the identity fields. Errors are *ValidationError.
func ValidateIdentity(id recognition.Identity) error {
	err := identityValidator().Struct(id)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func humanField(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func fieldMessage(fe validator.FieldError) string {
	name := humanField(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " is not a valid email address"
	case "max":
		return name + " must be at most " + fe.Param() + " characters"
	default:
		return name + " is invalid"
	}
}
