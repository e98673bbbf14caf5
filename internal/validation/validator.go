// Package validation validates metadata documents and tool options using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/realiad/iad-layout/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// pathsegment: a single directory entry name, usable as one path component.
	_ = v.RegisterValidation("pathsegment", func(fl validator.FieldLevel) bool {
		return IsPathSegment(fl.Field().String())
	})

	// relpath: a slash-separated relative path that stays below its root.
	_ = v.RegisterValidation("relpath", func(fl validator.FieldLevel) bool {
		return IsRelativePath(fl.Field().String())
	})

	// samplepath: a relpath that names an entry below its root, never the root itself.
	_ = v.RegisterValidation("samplepath", func(fl validator.FieldLevel) bool {
		return IsSamplePath(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain VALIDATION error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err, "validation failed")
	}
	return nil
}

// ValidateAs validates a struct and reports failures under the given code.
func (v *Validator) ValidateAs(s any, code domainerrors.Code, msg string) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	formatted := v.formatError(err, msg)
	var domainErr *domainerrors.Error
	if errors.As(formatted, &domainErr) {
		domainErr.Code = code
	}
	return formatted
}

// formatError converts validator errors to domain errors. The message lists
// the failing fields in sorted order so output is stable.
func (v *Validator) formatError(err error, msg string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = v.friendlyMessage(e)
	}

	keys := make([]string, 0, len(fieldErrors))
	for k := range fieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fieldErrors[k])
	}

	return domainerrors.ValidationWithDetails(msg+": "+strings.Join(parts, "; "), fieldErrors)
}

// fieldPath drops the root struct name from the namespace: "Document.meta.prefix" -> "meta.prefix".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "excludesall":
		return "must not contain any of: " + e.Param()
	case "pathsegment":
		return "must be a single path segment (no separators, not . or ..)"
	case "relpath":
		return "must be a relative path that stays inside its root"
	case "samplepath":
		return "must be a relative file path below its root (not . and not ending in ..)"
	case "nefield":
		return "must differ from " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

// IsPathSegment reports whether s can be used verbatim as one directory name.
func IsPathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.ContainsRune(s, 0)
}

// IsRelativePath reports whether s is a relative path that does not climb above its root.
// An empty string is accepted so optional fields can combine it with omitempty.
func IsRelativePath(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsRune(s, 0) {
		return false
	}
	slashed := strings.ReplaceAll(s, `\`, "/")
	if strings.HasPrefix(slashed, "/") || (len(slashed) > 1 && slashed[1] == ':') {
		return false
	}
	depth := 0
	for _, part := range strings.Split(slashed, "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// IsSamplePath reports whether s is a relative path naming an entry strictly
// below its root. Paths that clean to "." or end in ".." are rejected.
func IsSamplePath(s string) bool {
	if s == "" || !IsRelativePath(s) {
		return false
	}
	slashed := path.Clean(strings.ReplaceAll(s, `\`, "/"))
	return slashed != "." && path.Base(slashed) != ".."
}
