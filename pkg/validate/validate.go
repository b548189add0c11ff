package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return strings.ToLower(f.Name)
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return humanize(err)
	}
	return nil
}

// humanize turns the first field error into a short sentence fit for a notification.
func humanize(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be %s or more", field, fe.Param())
	case "email":
		return fmt.Errorf("%s must be a valid email", field)
	case "eqfield":
		return fmt.Errorf("%s does not match %s", field, strings.ToLower(fe.Param()))
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
