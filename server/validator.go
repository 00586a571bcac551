package server

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/tech-arch1tect/seminary/services/auth"
)

const (
	notBlankTag = "notblank"
	roleTag     = "role"
)

var translator ut.Translator

// Validator adapts go-playground/validator to echo.Validator. Field names in
// errors are the json tag names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = fld.Tag.Get("form")
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(str) != ""
	})
	_ = v.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		switch r := fl.Field().Interface().(type) {
		case auth.Role:
			return r.Valid()
		case string:
			return auth.Role(r).Valid()
		}
		return false
	})
	registerCustomTranslations(v, notBlankTag, roleTag)

	return &Validator{validate: v}
}

func registerCustomTranslations(v *validator.Validate, tags ...string) {
	noop := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = v.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case roleTag:
		return "unknown role"
	default:
		return ""
	}
}

func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}
