package services

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"freight-portal/internal/entities"
	"freight-portal/internal/registry"
)

const (
	SpreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	KindExport = "export"
	KindSample = "sample"

	maxSampleRows = 5
)

// FileName — имя выгружаемого файла: {entity}_{kind}_{yyyy-mm-dd}.xlsx.
func FileName(entity, kind string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s.xlsx", entity, kind, date.Format("2006-01-02"))
}

// sheetName — имя листа Excel не длиннее 31 символа и без запрещённых знаков.
func sheetName(entity registry.Entity) string {
	name := entity.Title()
	if name == "" {
		name = entity.Name()
	}
	name = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", " ", "]", " ").Replace(name)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

var (
	percentToFraction = big.NewRat(1, 100)
	fractionToPercent = big.NewRat(100, 1)
)

// scaleDecimal умножает число в десятичной записи: 12.345 / 100 даёт ровно 0.12345,
// и при чтении файла обратно получается то же 12.345.
func scaleDecimal(n float64, by *big.Rat) float64 {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(n, 'f', -1, 64))
	if !ok {
		return n
	}
	out, _ := r.Mul(r, by).Float64()
	return out
}

type workbookStyles struct {
	header  int
	date    int
	percent int
}

// newWorkbook создаёт файл с одним листом и жирной шапкой из DisplayName.
func newWorkbook(entity registry.Entity, fields []entities.FieldDescriptor) (*excelize.File, string, workbookStyles, error) {
	f := excelize.NewFile()
	sheet := sheetName(entity)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, "", workbookStyles{}, err
	}

	var styles workbookStyles
	var err error
	if styles.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		f.Close()
		return nil, "", styles, err
	}
	dateFmt := "dd/mm/yyyy"
	if styles.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		f.Close()
		return nil, "", styles, err
	}
	percentFmt := "0.00%"
	if styles.percent, err = f.NewStyle(&excelize.Style{CustomNumFmt: &percentFmt}); err != nil {
		f.Close()
		return nil, "", styles, err
	}

	header := make([]interface{}, len(fields))
	for i, fd := range fields {
		header[i] = fd.DisplayName
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, "", styles, err
	}
	if len(fields) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(fields), 1)
		if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
			f.Close()
			return nil, "", styles, err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(fields))
		_ = f.SetColWidth(sheet, "A", lastCol, 22)
	}
	return f, sheet, styles, nil
}

// BuildWorkbook выгружает записи: даты — настоящими датами, проценты —
// долями с процентным форматом, ссылки — подписями справочника.
func BuildWorkbook(entity registry.Entity, records []entities.Record, refs ReferenceIndex) (*excelize.File, error) {
	fields := entity.DisplayedFields()
	f, sheet, styles, err := newWorkbook(entity, fields)
	if err != nil {
		return nil, err
	}

	for r, rec := range records {
		rowNum := r + 2
		for c, fd := range fields {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			value, style := exportValue(entity, fd, rec[fd.FieldName], refs, styles)
			if value == nil {
				continue
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				f.Close()
				return nil, err
			}
			if style != 0 {
				if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
					f.Close()
					return nil, err
				}
			}
		}
	}
	return f, nil
}

func exportValue(entity registry.Entity, fd entities.FieldDescriptor, v any, refs ReferenceIndex, styles workbookStyles) (interface{}, int) {
	if v == nil {
		return nil, 0
	}
	switch fd.Type() {
	case entities.TypeBool:
		if truthy(v) {
			return "Yes", 0
		}
		return "No", 0
	case entities.TypeDate:
		if d, ok := parseStoredDate(v); ok {
			return d, styles.date
		}
		return nil, 0
	case entities.TypePercent:
		if n, ok := toFloat(v); ok {
			return scaleDecimal(n, percentToFraction), styles.percent
		}
		return nil, 0
	case entities.TypeInt, entities.TypeFloat:
		if n, ok := toFloat(v); ok {
			return n, 0
		}
	case entities.TypeReference:
		if entity.RawReferences() {
			return entities.Stringify(v), 0
		}
		label := refs.Label(fd.FieldName, v)
		if label == labelNotSet {
			return nil, 0
		}
		if label == labelUnknown {
			return entities.Stringify(v), 0
		}
		return label, 0
	}
	return entities.Stringify(v), 0
}

// BuildSample — файл-образец с той же шапкой; записи не читаются.
func BuildSample(entity registry.Entity) (*excelize.File, error) {
	fields := entity.DisplayedFields()
	f, sheet, _, err := newWorkbook(entity, fields)
	if err != nil {
		return nil, err
	}

	samples := entity.Samples()
	if len(samples) > maxSampleRows {
		samples = samples[:maxSampleRows]
	}
	for r, sample := range samples {
		row := make([]interface{}, len(fields))
		for c, fd := range fields {
			row[c] = sample[fd.FieldName]
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
