package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"freight-portal/internal/entities"
	"freight-portal/internal/registry"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

const isoDateLayout = "2006-01-02T15:04:05Z"

var importDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// normalizeFormValues оставляет только редактируемые поля и приводит их к типам.
// Пустое значение нестрокового поля становится nil, чтобы сработало required.
// Нечисловой текст в числовом поле становится 0, как при импорте.
func normalizeFormValues(entity registry.Entity, values map[string]any) entities.Record {
	out := make(entities.Record)
	for _, f := range entity.EditableFields() {
		raw, present := values[f.FieldName]
		switch f.Type() {
		case entities.TypeString, entities.TypeImage, entities.TypeDate:
			s := strings.TrimSpace(entities.Stringify(raw))
			if f.Upper {
				s = strings.ToUpper(s)
			}
			if f.Type() == entities.TypeDate && s != "" {
				if iso, ok := toISODate(s); ok {
					s = iso
				}
			}
			out[f.FieldName] = s
		case entities.TypeBool:
			out[f.FieldName] = truthy(raw)
		case entities.TypeInt, entities.TypeReference:
			if !present || strings.TrimSpace(entities.Stringify(raw)) == "" {
				out[f.FieldName] = nil
				continue
			}
			n, ok := toFloat(raw)
			switch {
			case ok && n == math.Trunc(n) && fitsInt64(n):
				out[f.FieldName] = int64(n)
			case ok || f.Type() == entities.TypeReference:
				out[f.FieldName] = raw
			default:
				out[f.FieldName] = int64(0)
			}
		case entities.TypeFloat, entities.TypePercent:
			if !present || strings.TrimSpace(entities.Stringify(raw)) == "" {
				out[f.FieldName] = nil
				continue
			}
			if text, ok := raw.(string); ok && f.Type() == entities.TypePercent {
				raw = strings.TrimSuffix(strings.TrimSpace(text), "%")
			}
			n, _ := toFloat(raw)
			out[f.FieldName] = n
		}
	}
	return out
}

// keepUnchanged возвращает в форму исходные значения полей, которые
// пользователь не менял; поля, которых не было ни в записи, ни в форме, убираются.
func keepUnchanged(form, original entities.Record, values map[string]any) {
	for field := range form {
		submitted, sent := values[field]
		prev, had := original[field]
		switch {
		case had && (!sent || entities.Stringify(submitted) == entities.Stringify(prev)):
			form[field] = prev
		case !had && !sent:
			delete(form, field)
		}
	}
}

func fitsInt64(n float64) bool {
	return n >= math.MinInt64 && n < math.MaxInt64
}

// validateRecord проверяет запись по правилам сущности.
func validateRecord(v *validator.Validate, entity registry.Entity, rec entities.Record) error {
	rules := entity.Rules()
	if len(rules) == 0 {
		return nil
	}
	ruleMap := make(map[string]interface{}, len(rules))
	for field, rule := range rules {
		ruleMap[field] = rule
	}

	data := make(map[string]interface{}, len(rec))
	for k, val := range rec {
		data[k] = val
	}

	result := v.ValidateMap(data, ruleMap)
	if len(result) == 0 {
		return nil
	}

	fields := make(map[string]string, len(result))
	for field, errVal := range result {
		fields[field] = validationMessage(entity, field, errVal)
	}
	return apperrors.NewValidationError(fields)
}

func validationMessage(entity registry.Entity, field string, errVal interface{}) string {
	name := field
	if f, ok := entity.Field(field); ok && f.DisplayName != "" {
		name = f.DisplayName
	}

	ve, ok := errVal.(validator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return fmt.Sprintf("%s: некорректное значение", name)
	}

	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: обязательное поле", name)
	case "max":
		return fmt.Sprintf("%s: не более %s", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s: не менее %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s: длина должна быть %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s: должно быть больше %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s: должно быть не меньше %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: допустимые значения: %s", name, fe.Param())
	case "custom_email", "email":
		return fmt.Sprintf("%s: неверный формат email", name)
	case "phone":
		return fmt.Sprintf("%s: неверный формат телефона", name)
	case "swift_code":
		return fmt.Sprintf("%s: неверный SWIFT-код", name)
	case "currency_code":
		return fmt.Sprintf("%s: код валюты из трёх латинских букв", name)
	case "upper_code":
		return fmt.Sprintf("%s: только заглавные латинские буквы, цифры, '-' и '_'", name)
	case "hs_code":
		return fmt.Sprintf("%s: неверный код ТН ВЭД", name)
	}
	return fmt.Sprintf("%s: не прошло проверку '%s'", name, fe.Tag())
}

// stampSession добавляет в новую запись компанию и автора из сессии.
func stampSession(rec entities.Record, session types.Session) {
	rec["companyId"] = session.CompanyID
	rec["createdBy"] = session.UserID
}

// autoCodePlaceholder — временный код, настоящий присваивает бэкенд.
func autoCodePlaceholder() string {
	return "AUTO" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// fillAutoCodes подставляет временные коды в пустые autoCode-поля.
func fillAutoCodes(entity registry.Entity, rec entities.Record) {
	for _, f := range entity.Descriptors() {
		if f.AutoCode && strings.TrimSpace(entities.Stringify(rec[f.FieldName])) == "" {
			rec[f.FieldName] = autoCodePlaceholder()
		}
	}
}

// coerceCell приводит текст ячейки к типу поля при импорте.
func coerceCell(f entities.FieldDescriptor, text string, refs ReferenceIndex) (any, error) {
	text = strings.TrimSpace(text)

	switch f.Type() {
	case entities.TypeBool:
		return parseBool(text), nil
	case entities.TypeInt:
		if n, ok := parseNumber(text); ok && fitsInt64(n) {
			return int64(n), nil
		}
		return int64(0), nil
	case entities.TypeFloat:
		n, _ := parseNumber(text)
		return n, nil
	case entities.TypePercent:
		n, _ := parseNumber(strings.TrimSuffix(text, "%"))
		return n, nil
	case entities.TypeDate:
		if text == "" {
			return nil, nil
		}
		iso, ok := toISODate(text)
		if !ok {
			return nil, fmt.Errorf("%s: не удалось распознать дату '%s'", f.DisplayName, text)
		}
		return iso, nil
	case entities.TypeReference:
		if text == "" {
			return nil, nil
		}
		value, ok := refs[f.FieldName].Resolve(text)
		if !ok {
			return nil, fmt.Errorf("%s: значение '%s' не найдено в справочнике", f.DisplayName, text)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n, nil
		}
		return value, nil
	}

	if f.Upper {
		text = strings.ToUpper(text)
	}
	return text, nil
}

// toISODate принимает dd/mm/yyyy, yyyy-mm-dd, RFC3339 и серийный номер Excel.
func toISODate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range importDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC().Format(isoDateLayout), true
		}
	}
	if serial, ok := parseNumber(s); ok && serial > 0 {
		d, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return d.UTC().Format(isoDateLayout), true
		}
	}
	return "", false
}
