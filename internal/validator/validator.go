// Package validator wires go-playground/validator into gin binding and turns
// validation failures into the envelope's field map.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/exstem-engine/internal/model"
)

// Fields maps a json field name to a readable message. "detail" holds
// errors that are not tied to a field, such as malformed JSON.
type Fields map[string]string

type rule struct {
	tag     string
	check   govalidator.Func
	message string
}

var rules = []rule{
	{
		tag: "answer_option",
		check: func(fl govalidator.FieldLevel) bool {
			_, ok := model.NormalizeOption(fl.Field().String())
			return ok
		},
		message: "{0} must be one of A, B, C, D or empty",
	},
}

var (
	setupOnce sync.Once
	trans     ut.Translator
)

// Setup installs json field naming, the custom rules and English messages on
// gin's validator. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)

		enLocale := en.New()
		trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		for _, r := range rules {
			_ = v.RegisterValidation(r.tag, r.check)
			_ = v.RegisterTranslation(r.tag, trans, addMessage(r.tag, r.message), translateField(r.tag))
		}
	})
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func addMessage(tag, message string) govalidator.RegisterTranslationsFunc {
	return func(t ut.Translator) error {
		return t.Add(tag, message, true)
	}
}

func translateField(tag string) govalidator.TranslationFunc {
	return func(t ut.Translator, fe govalidator.FieldError) string {
		msg, err := t.T(tag, fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	}
}

// TranslateErrors converts a binding error into Fields.
func TranslateErrors(err error) Fields {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return Fields{"detail": err.Error()}
	}

	fields := make(Fields, len(ve))
	for _, fe := range ve {
		if trans == nil {
			fields[fe.Field()] = fe.Error()
		} else {
			fields[fe.Field()] = fe.Translate(trans)
		}
	}
	return fields
}

// Bind decodes and validates the JSON body into dst. It returns nil on success.
func Bind(c *gin.Context, dst interface{}) Fields {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindOptional is Bind for endpoints whose body may be omitted entirely.
func BindOptional(c *gin.Context, dst interface{}) Fields {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return Bind(c, dst)
}
