// Package inputval validates form input structs with go-playground/validator
// and turns failures into user-facing messages.
//
// Fields are tagged with `validate:"..."` and an optional `label:"..."` used
// in messages:
//
//	type input struct {
//		Title string `validate:"required,max=200" label:"Title"`
//	}
//	if res := inputval.Validate(input{Title: title}); res.HasErrors() {
//		reRender(res.First())
//	}
package inputval

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

var slugRE = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return IsValidSlug(fl.Field().String())
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseRole(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("track", func(fl validator.FieldLevel) bool {
			return models.ValidTrack(fl.Field().String())
		})
		_ = v.RegisterValidation("studymode", func(fl validator.FieldLevel) bool {
			return models.ValidMode(fl.Field().String())
		})
		_ = v.RegisterValidation("loginemail", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
	})
	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects validation failures in field order.
type Result struct {
	Errors []FieldError
}

func (r Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "" when valid.
func (r Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// Validate checks s (a struct or pointer to struct).
func Validate(s any) Result {
	err := instance().Struct(s)
	if err == nil {
		return Result{}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Errors: []FieldError{{Message: err.Error()}}}
	}
	out := Result{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", name, fe.Param())
	case "slug":
		return name + " may contain only lowercase letters, digits and single hyphens."
	case "loginemail", "email":
		return "Please enter a valid email address."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", name, fe.Param())
	case "role", "track", "studymode":
		return name + " is not a valid choice."
	}
	return name + " is invalid."
}

// IsValidSlug reports whether s is a lowercase, hyphen-separated slug.
func IsValidSlug(s string) bool {
	return slugRE.MatchString(s)
}

// IsValidEmail accepts a bare address (no display name) with a non-empty
// local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1
}

// Slugify lowercases s and collapses everything that is not a letter or
// digit into single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
