package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"freight-portal/internal/entities"
)

func sheetRows(t *testing.T, f *excelize.File) [][]string {
	t.Helper()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	return rows
}

func TestFileName(t *testing.T) {
	date := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "branch_export_2026-10-19.xlsx", FileName("branch", KindExport, date))
	assert.Equal(t, "hsCode_sample_2026-10-19.xlsx", FileName("hsCode", KindSample, date))
}

func TestBuildWorkbookFormatsValues(t *testing.T) {
	env := newTestEnv(t)
	branch := env.entity(t, "branch")

	f, err := BuildWorkbook(branch, []entities.Record{
		{"branchId": float64(1), "branchCode": "BR-DXB", "branchName": "Dubai Main", "cityId": float64(1), "isHeadOffice": true, "isActive": false},
		{"branchId": float64(2), "branchCode": "BR-X", "branchName": "Lost", "cityId": float64(42)},
	}, cityRefs())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Branches", f.GetSheetList()[0])
	rows := sheetRows(t, f)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Branch Code", "Branch Name", "City", "Email", "Phone", "Address", "Head Office", "Status"}, rows[0])
	assert.Equal(t, "DXB - Dubai", rows[1][2])
	assert.Equal(t, "Yes", rows[1][6])
	assert.Equal(t, "No", rows[1][7])
	// неизвестная ссылка выгружается как есть
	assert.Equal(t, "42", rows[2][2])

	style, err := f.GetCellStyle("Branches", "A1")
	require.NoError(t, err)
	s, err := f.GetStyle(style)
	require.NoError(t, err)
	assert.True(t, s.Font.Bold)
}

func TestBuildWorkbookDatesPercentsAndRawReferences(t *testing.T) {
	env := newTestEnv(t)

	rates, err := BuildWorkbook(env.entity(t, "exchangeRate"), []entities.Record{
		{"currencyId": float64(2), "rate": 3.6725, "effectiveDate": "2026-10-01T00:00:00", "isActive": true},
	}, nil)
	require.NoError(t, err)
	defer rates.Close()
	rows := sheetRows(t, rates)
	assert.Equal(t, []string{"2", "3.6725", "01/10/2026", "Yes"}, rows[1])

	hs, err := BuildWorkbook(env.entity(t, "hsCode"), []entities.Record{
		{"hsCode": "8471.30", "description": "Portable computers", "dutyRate": 12.5},
	}, nil)
	require.NoError(t, err)
	defer hs.Close()
	rows = sheetRows(t, hs)
	assert.Equal(t, "12.50%", rows[1][2])

	raw, err := hs.GetCellValue("HS Codes", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.125", raw)
}

func TestBuildSampleUsesHeaderAndSamples(t *testing.T) {
	env := newTestEnv(t)

	f, err := BuildSample(env.entity(t, "branch"))
	require.NoError(t, err)
	defer f.Close()

	rows := sheetRows(t, f)
	require.Len(t, rows, 3)
	assert.Equal(t, "Branch Code", rows[0][0])
	assert.Equal(t, "BR-DXB", rows[1][0])
	assert.Equal(t, "BR-SHJ", rows[2][0])
	assert.Zero(t, env.provider.TotalCalls())

	city, err := BuildSample(env.entity(t, "city"))
	require.NoError(t, err)
	defer city.Close()
	rows = sheetRows(t, city)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"DXB", "Dubai", "AE", "yes"}, rows[1])
}
