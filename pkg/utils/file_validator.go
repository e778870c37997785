package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"freight-portal/config"
)

// ValidateFile проверяет размер, расширение и сигнатуру загруженного файла.
// maxSizeMB > 0 переопределяет лимит контекста.
func ValidateFile(fileHeader *multipart.FileHeader, file io.ReadSeeker, contextName string, maxSizeMB int64) error {
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return fmt.Errorf("неизвестный контекст загрузки: %s", contextName)
	}
	if maxSizeMB > 0 {
		rules.MaxSizeMB = maxSizeMB
	}

	if rules.MaxSizeMB > 0 && fileHeader.Size > rules.MaxSizeMB*1024*1024 {
		return fmt.Errorf("размер файла (%d KB) превышает лимит в %d MB", fileHeader.Size/1024, rules.MaxSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if len(rules.AllowedExtensions) > 0 && !slices.Contains(rules.AllowedExtensions, ext) {
		return fmt.Errorf("недопустимое расширение файла: %s", ext)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("не удалось прочитать файл для определения типа")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("не удалось сбросить указатель файла")
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return fmt.Errorf("недопустимый тип файла: %s", mimeType)
	}
	return nil
}
