// Пакет blobstore — физическое хранение файлов портала.
// Три области (active/, approved/, archive/) отражают статус жизненного
// цикла. Имя blob-а — стабильный ключ <uuid><ext>, перемещение между
// областями выполняется через os.Rename в пределах одной ФС.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/storage/sidecar"
)

var (
	// ErrNotFound — blob отсутствует во всех областях.
	ErrNotFound = errors.New("blob не найден")
	// ErrTooLarge — превышен лимит размера при записи.
	ErrTooLarge = errors.New("превышен максимальный размер файла")
	// ErrInvalidKey — ключ содержит разделители пути.
	ErrInvalidKey = errors.New("недопустимый ключ blob-а")
	// ErrExists — целевой blob уже существует.
	ErrExists = errors.New("blob уже существует в целевой области")
)

// Store — хранилище blob-ов.
type Store struct {
	// root — корневая директория хранилища (FP_STORAGE_DIR)
	root string
}

// SaveResult — результат сохранения blob-а.
type SaveResult struct {
	Key      string
	Size     int64
	Checksum string
}

// New создаёт Store и директории всех областей.
func New(root string) (*Store, error) {
	for _, area := range lifecycle.Areas {
		dir := filepath.Join(root, string(area))
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root возвращает корневую директорию.
func (s *Store) Root() string { return s.root }

// Path возвращает абсолютный путь blob-а в области.
func (s *Store) Path(key string, area lifecycle.Area) string {
	return filepath.Join(s.root, string(area), key)
}

// Save записывает данные в active/ с подсчётом SHA-256 на лету.
// limit > 0 ограничивает размер: при превышении возвращается ErrTooLarge.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *Store) Save(r io.Reader, key string, limit int64) (*SaveResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	fullPath := s.Path(key, lifecycle.AreaActive)
	if _, err := os.Stat(fullPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, key)
	}
	tmpPath := fullPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	if err == nil && limit > 0 && size > limit {
		err = ErrTooLarge
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		Key:      key,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает blob в ожидаемой области. Если его там нет (перемещение
// конкурирует с чтением), проверяются остальные области.
// Возвращает файл и фактическую область. Вызывающий код закрывает файл.
func (s *Store) Open(key string, area lifecycle.Area) (*os.File, lifecycle.Area, error) {
	if err := validateKey(key); err != nil {
		return nil, "", err
	}
	for _, a := range searchOrder(area) {
		f, err := os.Open(s.Path(key, a))
		if err == nil {
			return f, a, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("ошибка открытия файла %s: %w", key, err)
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Move перемещает blob и его sidecar между областями.
// Если blob уже находится в целевой области, возвращает nil.
func (s *Store) Move(key string, from, to lifecycle.Area) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	src, dst := s.Path(key, from), s.Path(key, to)

	if _, err := os.Stat(src); os.IsNotExist(err) {
		if _, err := os.Stat(dst); err == nil {
			return nil
		}
		return fmt.Errorf("%w: %s в %s", ErrNotFound, key, from)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s в %s", ErrExists, key, to)
	}

	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("ошибка перемещения %s: %s → %s: %w", key, from, to, err)
	}
	// sidecar следует за blob-ом; его отсутствие не ошибка.
	// При сбое blob возвращается назад: область остаётся прежней.
	if err := os.Rename(sidecar.PathFor(src), sidecar.PathFor(dst)); err != nil && !os.IsNotExist(err) {
		if backErr := os.Rename(dst, src); backErr != nil {
			return fmt.Errorf("ошибка перемещения метаданных %s: %w (возврат blob-а: %v)", key, err, backErr)
		}
		return fmt.Errorf("ошибка перемещения метаданных %s: %w", key, err)
	}
	return nil
}

// Delete удаляет blob и sidecar из области. nil, если их уже нет.
func (s *Store) Delete(key string, area lifecycle.Area) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := s.Path(key, area)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}
	return sidecar.Delete(sidecar.PathFor(path))
}

// Exists проверяет наличие blob-а в области.
func (s *Store) Exists(key string, area lifecycle.Area) bool {
	_, err := os.Stat(s.Path(key, area))
	return err == nil
}

// Locate возвращает область, в которой найден blob.
func (s *Store) Locate(key string) (lifecycle.Area, bool) {
	for _, a := range lifecycle.Areas {
		if s.Exists(key, a) {
			return a, true
		}
	}
	return "", false
}

// Keys возвращает ключи blob-ов области (без sidecar и temp файлов).
func (s *Store) Keys(area lifecycle.Area) ([]string, error) {
	dir := filepath.Join(s.root, string(area))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || sidecar.IsSidecar(name) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// ComputeChecksum вычисляет SHA-256 существующего blob-а.
func (s *Store) ComputeChecksum(key string, area lifecycle.Area) (string, error) {
	f, _, err := s.Open(key, area)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("ошибка вычисления checksum %s: %w", key, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// WriteSidecar записывает метаданные рядом с blob-ом.
func (s *Store) WriteSidecar(key string, area lifecycle.Area, meta *sidecar.Meta) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return sidecar.Write(sidecar.PathFor(s.Path(key, area)), meta)
}

// ReadSidecar читает метаданные blob-а.
func (s *Store) ReadSidecar(key string, area lifecycle.Area) (*sidecar.Meta, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return sidecar.Read(sidecar.PathFor(s.Path(key, area)))
}

// Name — имя проверки в ответе /health/ready.
func (s *Store) Name() string { return "storage" }

// CheckReady проверяет, что корень хранилища доступен на запись.
func (s *Store) CheckReady() (status string, message string) {
	probe, err := os.CreateTemp(filepath.Join(s.root, string(lifecycle.AreaActive)), ".probe-*")
	if err != nil {
		return "fail", fmt.Sprintf("хранилище недоступно на запись: %v", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return "ok", "хранилище доступно"
}

// searchOrder — сначала ожидаемая область, затем остальные.
func searchOrder(first lifecycle.Area) []lifecycle.Area {
	order := make([]lifecycle.Area, 0, len(lifecycle.Areas))
	order = append(order, first)
	for _, a := range lifecycle.Areas {
		if a != first {
			order = append(order, a)
		}
	}
	return order
}

// validateKey запрещает пустые ключи и разделители пути.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// KeyFor формирует ключ blob-а из id и расширения исходного имени.
func KeyFor(id, filename string) string {
	return id + strings.ToLower(filepath.Ext(filename))
}
