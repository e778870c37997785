package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// Record — один экземпляр сущности бэкенда в виде ключ/значение.
type Record map[string]any

// ID возвращает идентификатор записи в строковом виде.
// Для ещё не сохранённой записи ok == false.
func (r Record) ID(idField string) (string, bool) {
	v, ok := r[idField]
	if !ok || v == nil {
		return "", false
	}
	s := Stringify(v)
	if s == "" || s == "0" {
		return "", false
	}
	return s, true
}

// Clone делает неглубокую копию.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge накладывает other поверх копии r.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Stringify приводит значение ячейки к строке для поиска и экспорта.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
