package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator checks request payloads and renders failures as English
// messages keyed by JSON field name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() (*Validator, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	eng := en.New()
	uni := ut.New(eng, eng)
	translator, found := uni.GetTranslator("en")
	if !found {
		return nil, errors.New("translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, fmt.Errorf("registering translations: %w", err)
	}

	if err := validate.RegisterValidation("notnumeric", notEntirelyNumeric); err != nil {
		return nil, fmt.Errorf("registering notnumeric: %w", err)
	}
	err := validate.RegisterTranslation("notnumeric", translator,
		func(t ut.Translator) error {
			return t.Add("notnumeric", "{0} can't be entirely numeric", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("notnumeric", fe.Field())
			return msg
		},
	)
	if err != nil {
		return nil, fmt.Errorf("registering notnumeric translation: %w", err)
	}

	return &Validator{validate: validate, translator: translator}, nil
}

// Struct returns nil when v is valid, otherwise one message per failing field.
func (v *Validator) Struct(s interface{}) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fe.Translate(v.translator)
		}
	}
	return fields
}

func notEntirelyNumeric(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
