package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/geocoder89/carebook/internal/domain/contact"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator.
// Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
			return contact.ValidEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		// bcrypt rejects inputs over 72 bytes, while max counts runes
		_ = v.RegisterValidation("max_bytes", func(fl validator.FieldLevel) bool {
			limit, err := strconv.Atoi(fl.Param())
			if err != nil {
				return false
			}
			return len(fl.Field().String()) <= limit
		})
	})
}

// BindJSON decodes a JSON body into out, writing a 400 on failure.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	return respondBind(ctx, ctx.ShouldBindJSON(out), out)
}

// Bind accepts JSON or form-encoded bodies, chosen by Content-Type.
func Bind(ctx *gin.Context, out interface{}) bool {
	return respondBind(ctx, ctx.ShouldBind(out), out)
}

func respondBind(ctx *gin.Context, err error, out interface{}) bool {
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
		return false
	}

	RespondBadRequest(ctx, "Invalid request body", parseBindError(err, out))
	return false
}

func parseBindError(err error, out interface{}) interface{} {
	rootType := baseStructType(out)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]FieldError, 0, len(validationErrs))

		for _, fe := range validationErrs {
			fields = append(fields, FieldError{
				Field:   wireName(rootType, fe.StructField(), fe.Field()),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := wireName(rootType, lastSegment(typeErr.Field), typeErr.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", typeErr.Type.String()),
				},
			},
		}
	}

	return gin.H{"reason": err.Error()}
}

// firstFieldError returns the first validation failure, if any.
func firstFieldError(details interface{}) (FieldError, bool) {
	h, ok := details.(gin.H)
	if !ok {
		return FieldError{}, false
	}
	fields, ok := h["fields"].([]FieldError)
	if !ok || len(fields) == 0 {
		return FieldError{}, false
	}
	return fields[0], true
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// wireName maps a Go field name to its json (or form) tag name.
func wireName(root reflect.Type, structField, fallback string) string {
	if root != nil {
		if sf, ok := root.FieldByName(structField); ok {
			for _, key := range []string{"json", "form"} {
				name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
				if name != "" && name != "-" {
					return name
				}
			}
		}
	}
	if fallback == "" {
		return structField
	}
	return fallback
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required", "notblank":
		return "is required"
	case "email", "contact_email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "max_bytes":
		return "must be at most " + param + " bytes"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
