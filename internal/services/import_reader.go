package services

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"freight-portal/internal/entities"
	"freight-portal/internal/registry"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

// ReadRows читает первый лист; строка 0 — шапка. Значения берутся без
// форматирования: числа целиком, даты серийными номерами. Ячейка в процентном
// формате хранит долю и возвращается как "12.345%".
func ReadRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа %q: %w", sheets[0], err)
	}
	shown, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа %q: %w", sheets[0], err)
	}

	for i, row := range rows {
		for j, raw := range row {
			if i >= len(shown) || j >= len(shown[i]) || !strings.HasSuffix(shown[i][j], "%") {
				continue
			}
			if n, ok := parseNumber(raw); ok {
				row[j] = strconv.FormatFloat(scaleDecimal(n, fractionToPercent), 'f', -1, 64) + "%"
			}
		}
	}
	return rows, nil
}

// MapHeader сопоставляет колонки файла с полями сущности по DisplayName
// (или FieldName) без учёта регистра и пробелов. Пустые колонки пропускаются.
func MapHeader(entity registry.Entity, header []string) ([]*entities.FieldDescriptor, error) {
	fields := entity.DisplayedFields()
	byKey := make(map[string]int, len(fields)*2)
	for i, f := range fields {
		byKey[headerKey(f.DisplayName)] = i
		byKey[headerKey(f.FieldName)] = i
	}

	mapping := make([]*entities.FieldDescriptor, len(header))
	seen := make(map[string]bool, len(fields))
	var unrecognized []string
	for col, title := range header {
		key := headerKey(title)
		if key == "" {
			continue
		}
		i, ok := byKey[key]
		if !ok {
			unrecognized = append(unrecognized, strings.TrimSpace(title))
			continue
		}
		fd := fields[i]
		if seen[fd.FieldName] {
			continue
		}
		seen[fd.FieldName] = true
		mapping[col] = &fd
	}

	var missing []string
	for _, f := range fields {
		if f.Required && !seen[f.FieldName] {
			missing = append(missing, f.DisplayName)
		}
	}

	if len(missing) > 0 || len(unrecognized) > 0 {
		sort.Strings(unrecognized)
		return nil, &apperrors.HeaderError{Missing: missing, Unrecognized: unrecognized}
	}
	return mapping, nil
}

func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// ImportRow — подготовленная к отправке строка; Line — номер строки в Excel.
type ImportRow struct {
	Line   int
	Record entities.Record
}

// BuildImportRows приводит строки к типам полей и добавляет контекст сессии.
// Пустые строки пропускаются; строки с ошибкой приведения попадают в errs.
// Колонка идентификатора в запрос не попадает: строки всегда создаются заново.
func BuildImportRows(
	entity registry.Entity,
	mapping []*entities.FieldDescriptor,
	rows [][]string,
	refs ReferenceIndex,
	session types.Session,
) ([]ImportRow, []RowError) {
	var (
		out  []ImportRow
		errs []RowError
	)
	for i, row := range rows {
		line := i + 2
		if isBlankRow(row) {
			continue
		}

		rec := make(entities.Record, len(mapping)+3)
		var rowErr error
		for col, fd := range mapping {
			if fd == nil {
				continue
			}
			text := ""
			if col < len(row) {
				text = row[col]
			}
			v, err := coerceCell(*fd, text, refs)
			if err != nil && rowErr == nil {
				rowErr = err
			}
			rec[fd.FieldName] = v
		}
		if rowErr != nil {
			errs = append(errs, RowError{Row: line, Message: rowErr.Error()})
			continue
		}

		stampSession(rec, session)
		delete(rec, entity.IDField())
		fillAutoCodes(entity, rec)
		out = append(out, ImportRow{Line: line, Record: rec})
	}
	return out, errs
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
