package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStorageInterface — архив загруженных файлов импорта.
type FileStorageInterface interface {
	Save(file io.Reader, originalFileName string, prefix string) (filePath string, err error)
	Open(filePath string) (io.ReadCloser, error)
	Delete(filePath string) error
}

type LocalFileStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalFileStorage(basePath string) (FileStorageInterface, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию: %w", err)
	}
	return &LocalFileStorage{basePath: basePath, now: time.Now}, nil
}

// Save кладёт файл в {prefix}/yyyy/mm/dd/ под уникальным именем
// и возвращает относительный путь.
func (s *LocalFileStorage) Save(file io.Reader, originalFileName string, prefix string) (string, error) {
	now := s.now()
	ext := filepath.Ext(originalFileName)
	uniqueFileName := fmt.Sprintf("%s-%s%s", now.Format("2006-01-02"), uuid.New().String(), ext)

	relDir := filepath.Join(prefix, now.Format("2006/01/02"))
	if err := os.MkdirAll(filepath.Join(s.basePath, relDir), 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(s.basePath, relDir, uniqueFileName))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", err
	}

	return filepath.ToSlash(filepath.Join(relDir, uniqueFileName)), nil
}

func (s *LocalFileStorage) Open(filePath string) (io.ReadCloser, error) {
	full, err := s.resolve(filePath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete не считает ошибкой отсутствие файла.
func (s *LocalFileStorage) Delete(filePath string) error {
	full, err := s.resolve(filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve не выпускает путь за пределы basePath.
func (s *LocalFileStorage) resolve(filePath string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(filePath, "/")))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("недопустимый путь к файлу: %s", filePath)
	}
	return filepath.Join(s.basePath, rel), nil
}
