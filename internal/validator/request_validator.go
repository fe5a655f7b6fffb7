package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator はecho.Validatorとしてリクエストボディを検証する。
type RequestValidator struct {
	v *validator.Validate
}

func New() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// エラーのフィールド名はjsonタグで出す
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// 空白だけの文字列を弾く
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	// 最初の1件だけ返す（例: "quantity failed on min"）
	fe := verrs[0]
	field := fe.Field()
	if fe.Param() != "" {
		return fmt.Errorf("%s failed on %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s failed on %s", field, fe.Tag())
}
