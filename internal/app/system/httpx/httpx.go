// Package httpx holds the JSON request/response helpers shared by every
// feature handler.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

var (
	validate   *validator.Validate
	translator ut.Translator

	hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names, not Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		d := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		for _, w := range models.Weekdays {
			if w == d {
				return true
			}
		}
		return false
	})
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.IsValidRole(strings.TrimSpace(fl.Field().String()))
	})

	custom := map[string]string{
		"notblank": "{0} must not be blank",
		"hhmm":     "{0} must be a time in HH:MM format",
		"weekday":  "{0} must be one of mon, tue, wed, thu, fri, sat, sun",
		"role":     "{0} must be a valid role",
	}
	for tag, text := range custom {
		tag, text := tag, text
		_ = validate.RegisterTranslation(tag, translator,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tag, fe.Field())
				return msg
			})
	}
}

// Validate runs struct validation and converts failures into an
// InvalidArgument error carrying per-field messages.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierr.Wrap(apierr.InvalidArgument, "", err)
	}
	fields := make(map[string]string, len(verrs))
	first := ""
	for _, fe := range verrs {
		msg := fe.Translate(translator)
		if first == "" {
			first = msg
		}
		fields[fe.Field()] = msg
	}
	e := apierr.New(apierr.InvalidArgument, first)
	e.Fields = fields
	return e
}

// Decode reads a JSON body into dst, rejecting unknown fields and oversize
// bodies, then validates it.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.New(apierr.InvalidArgument, "Request body is required.")
		}
		return apierr.Wrap(apierr.InvalidArgument, "Request body is not valid JSON.", err)
	}
	if dec.More() {
		return apierr.New(apierr.InvalidArgument, "Request body must contain a single JSON object.")
	}
	return Validate(dst)
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Data is the success envelope for resource responses.
type Data struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Total   *int64 `json:"total,omitempty"`
}

// OK writes {success:true, data}.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Data{Success: true, Data: data})
}

// Created writes {success:true, data} with 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Data{Success: true, Data: data})
}

// List writes a page of rows together with the unpaged total.
func List(w http.ResponseWriter, rows any, total int64) {
	JSON(w, http.StatusOK, Data{Success: true, Data: rows, Total: &total})
}

// Done writes {success:true}.
func Done(w http.ResponseWriter) {
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ObjectIDParam parses a hex ObjectID from a chi URL parameter.
func ObjectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apierr.New(apierr.InvalidArgument, fmt.Sprintf("%s is not a valid identifier.", name))
	}
	return id, nil
}
