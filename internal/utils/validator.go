package utils

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var cnPhonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidateCNPhone 自定义校验规则 cnphone：11 位大陆手机号
func ValidateCNPhone(fl validator.FieldLevel) bool {
	return cnPhonePattern.MatchString(fl.Field().String())
}

// RegisterValidations 在给定的校验器上注册自定义规则
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("cnphone", ValidateCNPhone)
}

// Validator 返回注册了自定义规则的共享校验器
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		if err := RegisterValidations(validate); err != nil {
			panic(err)
		}
	})
	return validate
}

// IsCNPhone 校验手机号格式
func IsCNPhone(phone string) bool {
	return Validator().Var(phone, "required,cnphone") == nil
}
