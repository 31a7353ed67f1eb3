// Пакет sidecar — файлы метаданных рядом с blob-ами (*.meta.json).
// Источник истины — БД; sidecar зеркалирует запись файла для
// инспекции хранилища и сверки (reconcile).
// Запись атомарна: temp → fsync → rename.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Suffix — суффикс файла метаданных.
const Suffix = ".meta.json"

// maxSize — максимальный размер sidecar (4 КБ).
const maxSize = 4096

// Meta — содержимое sidecar-файла.
type Meta struct {
	FileID            string     `json:"file_id"`
	OriginalFilename  string     `json:"original_filename"`
	ContentType       string     `json:"content_type"`
	Size              int64      `json:"size"`
	Checksum          string     `json:"checksum"`
	Country           string     `json:"country"`
	Urgency           string     `json:"urgency"`
	Stage             string     `json:"stage"`
	PublicationStatus *string    `json:"publication_status,omitempty"`
	Status            string     `json:"status"`
	ArchivedFrom      *string    `json:"archived_from,omitempty"`
	Note              string     `json:"note,omitempty"`
	UploadedBy        string     `json:"uploaded_by"`
	UploaderRole      string     `json:"uploader_role"`
	UploadedAt        time.Time  `json:"uploaded_at"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
}

// PathFor возвращает путь sidecar для blob-а.
// Пример: "/data/active/<uuid>.pdf" → "/data/active/<uuid>.pdf.meta.json"
func PathFor(blobPath string) string {
	return blobPath + Suffix
}

// BlobPath возвращает путь blob-а по пути sidecar.
func BlobPath(sidecarPath string) string {
	return strings.TrimSuffix(sidecarPath, Suffix)
}

// IsSidecar проверяет, является ли путь sidecar-файлом.
func IsSidecar(path string) bool {
	return strings.HasSuffix(path, Suffix)
}

// Write атомарно записывает метаданные.
// Возвращает ошибку, если сериализованные данные превышают 4 КБ.
func Write(path string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	if len(data) > maxSize {
		return fmt.Errorf("размер sidecar (%d байт) превышает максимум (%d байт)", len(data), maxSize)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// Read читает sidecar.
func Read(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения sidecar %s: %w", path, err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("ошибка десериализации sidecar %s: %w", path, err)
	}
	return &meta, nil
}

// Delete удаляет sidecar. nil, если файла уже нет.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления sidecar %s: %w", path, err)
	}
	return nil
}

// ScanDir возвращает все читаемые sidecar-файлы каталога (не рекурсивно).
// Невалидные файлы пропускаются и возвращаются списком путей.
func ScanDir(dir string) (metas []*Meta, invalid []string, err error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Suffix))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка сканирования директории %s: %w", dir, err)
	}
	for _, path := range matches {
		meta, err := Read(path)
		if err != nil {
			invalid = append(invalid, path)
			continue
		}
		metas = append(metas, meta)
	}
	return metas, invalid, nil
}
