// Package storage отвечает за файловое хранилище вложений на диске.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiskStorage хранит файлы в каталоге на локальном диске.
type DiskStorage struct {
	rootPath string
}

// NewDiskStorage создаёт хранилище и каталог под него.
func NewDiskStorage(rootPath string) (*DiskStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &DiskStorage{rootPath: rootPath}, nil
}

// Save сохраняет содержимое файла и возвращает относительный путь.
// Запись идёт через временный файл и переименование, чтобы в хранилище
// не оставалось недописанных файлов.
func (s *DiskStorage) Save(fileName string, data []byte) (string, error) {
	safeName := sanitizeFilename(fileName)
	stored := fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixNano(), filepath.Ext(safeName))

	targetPath := filepath.Join(s.rootPath, stored)
	tempPath := targetPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}
	return stored, nil
}

// Remove удаляет файл из хранилища.
func (s *DiskStorage) Remove(relativePath string) error {
	target := filepath.Join(s.rootPath, filepath.Base(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// AbsolutePath возвращает абсолютный путь файла для отдачи клиенту.
func (s *DiskStorage) AbsolutePath(relativePath string) string {
	return filepath.Join(s.rootPath, filepath.Base(relativePath))
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "file"
	}
	return name
}
