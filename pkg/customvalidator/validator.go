// Файл: pkg/customvalidator/validator.go

package customvalidator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	swiftRegex    = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	upperRegex    = regexp.MustCompile(`^[A-Z0-9_\-]+$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{5,19}$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	hsRegex       = regexp.MustCompile(`^[0-9]{4}(\.?[0-9]{2}){0,3}$`)
)

// CustomValidator — обертка для использования в Echo
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Engine отдаёт настроенный валидатор для проверки форм-карт.
func (cv *CustomValidator) Engine() *validator.Validate {
	return cv.validator
}

// New создает валидатор со всеми нашими правилами. Если правило не
// зарегистрировалось — паникуем, сервер не должен стартовать.
func New() *CustomValidator {
	v := validator.New()
	if err := RegisterCustomValidations(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}
	return &CustomValidator{validator: v}
}

// RegisterCustomValidations регистрирует правила, которые используются
// в схемах справочников и в тегах DTO.
func RegisterCustomValidations(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"custom_email":  isGoodEmailFormat,
		"swift_code":    isSwiftCode,
		"upper_code":    isUpperCode,
		"phone":         isPhoneNumber,
		"currency_code": isCurrencyCode,
		"hs_code":       isHSCode,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func isGoodEmailFormat(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// SWIFT/BIC: 8 или 11 символов
func isSwiftCode(fl validator.FieldLevel) bool {
	return swiftRegex.MatchString(fl.Field().String())
}

func isUpperCode(fl validator.FieldLevel) bool {
	return upperRegex.MatchString(fl.Field().String())
}

func isPhoneNumber(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

func isCurrencyCode(fl validator.FieldLevel) bool {
	return currencyRegex.MatchString(fl.Field().String())
}

func isHSCode(fl validator.FieldLevel) bool {
	return hsRegex.MatchString(fl.Field().String())
}
