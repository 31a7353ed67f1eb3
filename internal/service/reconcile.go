// reconcile.go — сверка записей БД с содержимым хранилища.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
)

// errRecordUnchanged откатывает Mutate: запись при сверке не меняется.
var errRecordUnchanged = errors.New("запись не изменена")

// ReconcileOptions — параметры сверки.
type ReconcileOptions struct {
	// VerifyChecksums — пересчитать SHA-256 каждого blob-а
	VerifyChecksums bool
}

// ReconcileReport — результат сверки.
type ReconcileReport struct {
	// Records — количество записей в БД
	Records int
	// OrphanBlobs — blob-ы без записи (область/ключ)
	OrphanBlobs []string
	// MissingBlobs — ID записей без blob-а
	MissingBlobs []string
	// Relocated — ID файлов, blob которых перенесён в область по статусу
	Relocated []string
	// ChecksumMismatches — ID файлов, чей blob не совпал с checksum записи
	ChecksumMismatches []string
	// SidecarsWritten — количество перезаписанных sidecar
	SidecarsWritten int
}

// Reconcile сверяет записи с хранилищем. Статус записи — источник правды:
// blob в чужой области переносится под блокировкой записи, sidecar
// перезаписывается из БД. Blob-ы без записей, записи без blob-ов
// и расхождения checksum только сообщаются.
func (s *FileService) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileReport, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение записей: %w", err)
	}

	// Ключ → область фактического расположения
	located := make(map[string]lifecycle.Area)
	for _, area := range lifecycle.Areas {
		keys, err := s.store.Keys(area)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		for _, k := range keys {
			located[k] = area
		}
	}

	report := &ReconcileReport{Records: len(records)}
	for _, f := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		actual, ok := located[f.StorageName]
		if !ok {
			report.MissingBlobs = append(report.MissingBlobs, f.ID)
			continue
		}
		delete(located, f.StorageName)

		if actual != f.Area() {
			current, moved, err := s.relocate(ctx, f.ID)
			if err != nil {
				s.logger.Error("Не удалось перенести blob",
					slog.String("file_id", f.ID),
					slog.String("from", string(actual)),
					slog.String("to", string(f.Area())),
					slog.String("error", err.Error()),
				)
				continue
			}
			if current == nil {
				// Запись удалена во время сверки
				continue
			}
			f = current
			if moved {
				report.Relocated = append(report.Relocated, f.ID)
			}
		}

		if opts.VerifyChecksums {
			sum, err := s.store.ComputeChecksum(f.StorageName, f.Area())
			switch {
			case err != nil:
				s.logger.Warn("Не удалось вычислить checksum",
					slog.String("file_id", f.ID),
					slog.String("error", err.Error()),
				)
			case sum != f.Checksum:
				report.ChecksumMismatches = append(report.ChecksumMismatches, f.ID)
			}
		}

		if err := s.store.WriteSidecar(f.StorageName, f.Area(), MetaOf(f)); err != nil {
			s.logger.Warn("Не удалось записать sidecar",
				slog.String("file_id", f.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.SidecarsWritten++
	}

	for key, area := range located {
		report.OrphanBlobs = append(report.OrphanBlobs, string(area)+"/"+key)
	}
	sort.Strings(report.OrphanBlobs)

	s.logger.Info("Сверка хранилища завершена",
		slog.Int("records", report.Records),
		slog.Int("orphan_blobs", len(report.OrphanBlobs)),
		slog.Int("missing_blobs", len(report.MissingBlobs)),
		slog.Int("relocated", len(report.Relocated)),
		slog.Int("checksum_mismatches", len(report.ChecksumMismatches)),
	)
	return report, nil
}

// relocate переносит blob в область по статусу, пока запись заблокирована.
// Статус и расположение перечитываются под блокировкой: параллельный
// переход жизненного цикла не откатывается. nil-запись — её уже нет.
func (s *FileService) relocate(ctx context.Context, id string) (*model.FileRecord, bool, error) {
	var (
		current *model.FileRecord
		moved   bool
	)
	_, err := s.repo.Mutate(ctx, id, func(f *model.FileRecord) error {
		c := *f
		current = &c
		actual, ok := s.store.Locate(f.StorageName)
		if !ok {
			return fmt.Errorf("%w: blob %s не найден", ErrStorage, f.StorageName)
		}
		if actual != f.Area() {
			if err := s.store.Move(f.StorageName, actual, f.Area()); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
			moved = true
		}
		return errRecordUnchanged
	})
	switch {
	case errors.Is(err, errRecordUnchanged):
		return current, moved, nil
	case mapRepoError(err) == ErrNotFound:
		return nil, false, nil
	default:
		return nil, false, err
	}
}
