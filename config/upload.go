package config

// UploadConfig — правила приёма файла для конкретного контекста загрузки.
type UploadConfig struct {
	AllowedMimeTypes  []string
	AllowedExtensions []string
	MaxSizeMB         int64
	PathPrefix        string
}

// ImportWorkbook — контекст загрузки файла пакетного импорта.
const ImportWorkbook = "import_workbook"

var UploadContexts = map[string]UploadConfig{
	ImportWorkbook: {
		// xlsx — zip-архив, DetectContentType видит его как application/zip
		AllowedMimeTypes:  []string{"application/zip", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		AllowedExtensions: []string{".xlsx"},
		MaxSizeMB:         10,
		PathPrefix:        "imports",
	},
}
