package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"freight-portal/internal/entities"
)

// CellKind подсказывает фронтенду, как рисовать ячейку.
type CellKind string

const (
	CellText   CellKind = "text"
	CellNumber CellKind = "number"
	CellBadge  CellKind = "badge"
	CellImage  CellKind = "image"
)

const (
	placeholderDash    = "-"
	placeholderNoImage = "No image"
	badgeGreen         = "green"
	badgeRed           = "red"
	displayDateLayout  = "02/01/2006"
)

type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type Cell struct {
	Field string   `json:"field"`
	Text  string   `json:"text"`
	Kind  CellKind `json:"kind"`
	Badge *Badge   `json:"badge,omitempty"`
	Image string   `json:"image,omitempty"`
}

type Row struct {
	Key    string          `json:"key"`
	Record entities.Record `json:"record"`
	Cells  []Cell          `json:"cells"`
}

type Column struct {
	Key      string            `json:"key"`
	Title    string            `json:"title"`
	DataType entities.DataType `json:"dataType,omitempty"`
	Actions  []string          `json:"actions,omitempty"`
}

// Columns — колонка действий и колонки отображаемых полей по порядку.
func Columns(fields []entities.FieldDescriptor) []Column {
	cols := make([]Column, 0, len(fields)+1)
	cols = append(cols, Column{Key: "actions", Title: "Actions", Actions: []string{"edit", "delete"}})
	for _, f := range fields {
		if !f.Participates() {
			continue
		}
		cols = append(cols, Column{Key: f.FieldName, Title: f.DisplayName, DataType: f.Type()})
	}
	return cols
}

// FilterRecords ищет подстроку без учёта регистра во всех значениях записи.
// Пустой поиск возвращает исходный срез.
func FilterRecords(records []entities.Record, searchText string) []entities.Record {
	needle := strings.ToLower(strings.TrimSpace(searchText))
	if needle == "" {
		return records
	}
	out := make([]entities.Record, 0, len(records))
	for _, rec := range records {
		for _, v := range rec {
			if strings.Contains(strings.ToLower(entities.Stringify(v)), needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Render строит строки таблицы из отфильтрованных записей.
func Render(records []entities.Record, fields []entities.FieldDescriptor, idField, searchText string, refs ReferenceIndex) []Row {
	filtered := FilterRecords(records, searchText)
	displayed := entities.DisplayedFields(fields)

	rows := make([]Row, 0, len(filtered))
	for i, rec := range filtered {
		key, ok := rec.ID(idField)
		if !ok {
			key = "row-" + strconv.Itoa(i)
		}
		cells := make([]Cell, 0, len(displayed))
		for _, f := range displayed {
			cells = append(cells, FormatCell(f, rec[f.FieldName], refs))
		}
		rows = append(rows, Row{Key: key, Record: rec, Cells: cells})
	}
	return rows
}

// FormatCell применяет форматтер по типу поля.
func FormatCell(f entities.FieldDescriptor, value any, refs ReferenceIndex) Cell {
	cell := Cell{Field: f.FieldName, Kind: CellText}

	switch f.Type() {
	case entities.TypeBool:
		b := boolBadge(f.FieldName, truthy(value))
		cell.Kind = CellBadge
		cell.Badge = &b
		cell.Text = b.Label
	case entities.TypeDate:
		cell.Text = formatDate(value)
	case entities.TypePercent:
		cell.Kind = CellNumber
		cell.Text = formatPercent(value)
	case entities.TypeImage:
		if url := strings.TrimSpace(entities.Stringify(value)); url != "" {
			cell.Kind = CellImage
			cell.Image = url
			cell.Text = url
		} else {
			cell.Text = placeholderNoImage
		}
	case entities.TypeReference:
		cell.Text = refs.Label(f.FieldName, value)
	case entities.TypeInt, entities.TypeFloat:
		cell.Kind = CellNumber
		cell.Text = orDash(entities.Stringify(value))
	default:
		cell.Text = orDash(entities.Stringify(value))
	}
	return cell
}

// boolBadge: поля активности подписываются Active/Inactive, остальные Yes/No.
func boolBadge(fieldName string, v bool) Badge {
	yes, no := "Yes", "No"
	if strings.Contains(strings.ToLower(fieldName), "active") {
		yes, no = "Active", "Inactive"
	}
	if v {
		return Badge{Label: yes, Color: badgeGreen}
	}
	return Badge{Label: no, Color: badgeRed}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return parseBool(t)
	case nil:
		return false
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// toFloat не пропускает NaN и бесконечность: их не кодирует JSON.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, isFinite(t)
	case float32:
		return float64(t), isFinite(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		return parseNumber(t)
	}
	return 0, false
}

// parseNumber разбирает число с разделителями тысяч ("1,200").
func parseNumber(text string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", ""), 64)
	if err != nil || !isFinite(n) {
		return 0, false
	}
	return n, true
}

func isFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

var storedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseStoredDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range storedDateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func formatDate(v any) string {
	d, ok := parseStoredDate(v)
	if !ok {
		return placeholderDash
	}
	return d.Format(displayDateLayout)
}

func formatPercent(v any) string {
	f, ok := toFloat(v)
	if !ok || f <= 0 {
		return placeholderDash
	}
	return fmt.Sprintf("%.2f%%", f)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholderDash
	}
	return s
}
