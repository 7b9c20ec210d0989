package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrAuthorization matches every *AuthorizationError.
	ErrAuthorization = errors.New("access denied")
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrPostNotFound    = &NotFoundError{Resource: "post"}
	ErrCommentNotFound = &NotFoundError{Resource: "comment"}
	ErrInvalidLogin    = errors.New("invalid username or password")
)

// AuthorizationError reports a caller lacking a required capability.
type AuthorizationError struct {
	Capability string
	Username   string
}

func (e *AuthorizationError) Error() string {
	who := e.Username
	if who == "" {
		who = "anonymous"
	}
	return fmt.Sprintf("%s: %s lacks capability %q", ErrAuthorization, who, e.Capability)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrAuthorization
}

// NotFoundError reports a lookup that matched nothing.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Is matches ErrNotFound and any NotFoundError of the same resource.
func (e *NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	other, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return other.Resource == e.Resource && (other.Key == "" || other.Key == e.Key)
}

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", ErrValidation, e.Err)
		}
		return ErrValidation.Error()
	}

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct tag validation and converts failures to a ValidationError.
func validateStruct(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Err: err}
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "max":
			fields[name] = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		default:
			fields[name] = fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
		}
	}
	return &ValidationError{Fields: fields, Err: err}
}
