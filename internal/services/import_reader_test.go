package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freight-portal/internal/entities"
	apperrors "freight-portal/pkg/errors"
)

func TestCoerceCellBoundaries(t *testing.T) {
	boolField := entities.FieldDescriptor{FieldName: "isActive", DataType: entities.TypeBool}
	for _, in := range []string{"YES", "yes", "1", "true", " True "} {
		v, err := coerceCell(boolField, in, nil)
		require.NoError(t, err)
		assert.Equal(t, true, v, in)
	}
	for _, in := range []string{"no", "0", "", "y", "2"} {
		v, _ := coerceCell(boolField, in, nil)
		assert.Equal(t, false, v, in)
	}

	intField := entities.FieldDescriptor{FieldName: "teu", DataType: entities.TypeInt}
	v, _ := coerceCell(intField, "abc", nil)
	assert.Equal(t, int64(0), v)
	v, _ = coerceCell(intField, "1,200", nil)
	assert.Equal(t, int64(1200), v)

	floatField := entities.FieldDescriptor{FieldName: "rate", DataType: entities.TypeFloat}
	v, _ = coerceCell(floatField, "n/a", nil)
	assert.Equal(t, float64(0), v)

	percentField := entities.FieldDescriptor{FieldName: "vat", DataType: entities.TypePercent}
	v, _ = coerceCell(percentField, "12.5%", nil)
	assert.Equal(t, 12.5, v)
	v, _ = coerceCell(percentField, "nan%", nil)
	assert.Equal(t, float64(0), v)

	for _, in := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity"} {
		v, _ = coerceCell(floatField, in, nil)
		assert.Equal(t, float64(0), v, in)
		v, _ = coerceCell(intField, in, nil)
		assert.Equal(t, int64(0), v, in)
		v, _ = coerceCell(percentField, in, nil)
		assert.Equal(t, float64(0), v, in)
	}
	v, _ = coerceCell(intField, "1e30", nil)
	assert.Equal(t, int64(0), v)

	dateField := entities.FieldDescriptor{FieldName: "validFrom", DisplayName: "Valid From", DataType: entities.TypeDate}
	v, err := coerceCell(dateField, "01/10/2026", nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01T00:00:00Z", v)
	v, err = coerceCell(dateField, "", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	_, err = coerceCell(dateField, "someday", nil)
	assert.ErrorContains(t, err, "Valid From")

	upper := entities.FieldDescriptor{FieldName: "swiftCode", Upper: true}
	v, _ = coerceCell(upper, " nbadaeaa ", nil)
	assert.Equal(t, "NBADAEAA", v)
}

func TestMapHeaderReportsMissingAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	city := env.entity(t, "city")

	_, err := MapHeader(city, []string{"City Name", "Population", ""})
	var headerErr *apperrors.HeaderError
	require.ErrorAs(t, err, &headerErr)
	assert.Contains(t, headerErr.Missing, "City Code")
	assert.Equal(t, []string{"Population"}, headerErr.Unrecognized)

	mapping, err := MapHeader(city, []string{"countrycode", " city  code ", "City Name"})
	require.NoError(t, err)
	require.Len(t, mapping, 3)
	assert.Equal(t, "countryCode", mapping[0].FieldName)
	assert.Equal(t, "cityCode", mapping[1].FieldName)
}

func TestBuildImportRowsStampsSessionAndSkipsBlank(t *testing.T) {
	env := newTestEnv(t)
	city := env.entity(t, "city")
	mapping, err := MapHeader(city, []string{"City Code", "City Name", "Country Code", "Is Port"})
	require.NoError(t, err)

	rows, errs := BuildImportRows(city, mapping, [][]string{
		{"khi", "Karachi", "pk", "YES"},
		{"", " ", ""},
		{"LHE", "Lahore", "PK"},
	}, nil, testSession)

	assert.Empty(t, errs)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line)

	first := rows[0].Record
	assert.Equal(t, "KHI", first["cityCode"])
	assert.Equal(t, "PK", first["countryCode"])
	assert.Equal(t, true, first["isPort"])
	assert.Equal(t, testSession.CompanyID, first["companyId"])
	assert.Equal(t, testSession.UserID, first["createdBy"])
	assert.Equal(t, false, rows[1].Record["isPort"])
}

func TestNumericRowsAlwaysEncode(t *testing.T) {
	env := newTestEnv(t)
	hs := env.entity(t, "hsCode")
	mapping, err := MapHeader(hs, []string{"HS Code", "Description", "Duty Rate", "VAT Rate"})
	require.NoError(t, err)

	rows, errs := BuildImportRows(hs, mapping, [][]string{{"8471.30", "Computers", "NaN", "Inf%"}}, nil, testSession)
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(0), rows[0].Record["dutyRate"])
	assert.Equal(t, float64(0), rows[0].Record["vatRate"])
	_, err = json.Marshal(rows[0].Record)
	assert.NoError(t, err)

	form := normalizeFormValues(hs, map[string]any{"hsCode": "8471.30", "dutyRate": "NaN", "vatRate": "12.5%"})
	assert.Equal(t, float64(0), form["dutyRate"])
	assert.Equal(t, 12.5, form["vatRate"])
	_, err = json.Marshal(form)
	assert.NoError(t, err)
}

func TestBuildImportRowsNeverSendsIdentity(t *testing.T) {
	env := newTestEnv(t)

	city := env.entity(t, "city")
	mapping, err := MapHeader(city, []string{"ID", "City Code", "City Name", "Country Code"})
	require.NoError(t, err)
	rows, errs := BuildImportRows(city, mapping, [][]string{{"99", "KHI", "Karachi", "PK"}}, nil, testSession)
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0].Record, "cityId")

	// у компании идентификатор совпадает с полем сессии companyId
	company := env.entity(t, "company")
	mapping, err = MapHeader(company, []string{"Company Name", "Email"})
	require.NoError(t, err)
	rows, errs = BuildImportRows(company, mapping, [][]string{{"Gulf Lines", "ops@gulf.example"}}, nil, testSession)
	require.Empty(t, errs)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0].Record, "companyId")
	assert.Equal(t, testSession.UserID, rows[0].Record["createdBy"])
}

func TestReadRowsKeepsPercentPrecision(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"HS Code", "Duty Rate", "VAT Rate", "Valid From"}))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "8471.30"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 0.12345))
	require.NoError(t, f.SetCellValue("Sheet1", "C2", "7.5%"))
	require.NoError(t, f.SetCellValue("Sheet1", "D2", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)))

	pct := "0.00%"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &pct})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B2", style))
	dateFmt := "dd/mm/yyyy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D2", dateStyle))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "12.345%", rows[1][1])
	assert.Equal(t, "7.5%", rows[1][2])

	iso, ok := toISODate(rows[1][3])
	require.True(t, ok, rows[1][3])
	assert.Equal(t, "2026-10-01T00:00:00Z", iso)
}
