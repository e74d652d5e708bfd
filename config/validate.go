package config

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	structValidator *validator.Validate
	trans           ut.Translator
)

func init() {
	structValidator = validator.New()

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(structValidator, trans)

	_ = structValidator.RegisterTranslation("oneof", trans, func(ut ut.Translator) error {
		return ut.Add("oneof", "{0} must be one of the supported values", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("oneof", fe.Field())
		return t
	})
}

func validate(cfg Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return translateValidatorError(err)
	}
	if err := structValidator.Struct(cfg.Compression); err != nil {
		return translateValidatorError(err)
	}
	return nil
}

// translateValidatorError converts the validator's structured errors
// into a single readable message.
func translateValidatorError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	translated := verrs.Translate(trans)
	vals := make([]string, 0, len(translated))
	for _, value := range translated {
		vals = append(vals, value)
	}
	return errors.New(strings.Join(vals, "; "))
}
