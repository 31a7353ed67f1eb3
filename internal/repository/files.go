package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/stage"
)

// FileMutator изменяет заблокированную запись. Ошибка отменяет транзакцию.
type FileMutator func(f *model.FileRecord) error

// FileRepository — интерфейс CRUD для таблицы files.
type FileRepository interface {
	// Create создаёт запись файла.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл по UUID.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// List возвращает список файлов с фильтрацией.
	// Порядок: сначала high, затем новые; для архива — по времени архивации.
	List(ctx context.Context, filters model.FileFilters, limit, offset int) ([]*model.FileRecord, error)
	// Count возвращает количество файлов с фильтрацией.
	Count(ctx context.Context, filters model.FileFilters) (int, error)
	// ListAll возвращает все записи (для сверки с хранилищем).
	ListAll(ctx context.Context) ([]*model.FileRecord, error)
	// Mutate блокирует запись (FOR UPDATE), вызывает fn и сохраняет результат.
	Mutate(ctx context.Context, id string, fn FileMutator) (*model.FileRecord, error)
	// Delete удаляет запись. Отметки просмотра удаляются каскадно.
	Delete(ctx context.Context, id string) error
	// SetReviewed ставит или снимает персональную отметку «просмотрено».
	SetReviewed(ctx context.Context, fileID, username string, reviewed bool, now time.Time) error
	// ReviewedBy возвращает множество файлов из ids, отмеченных пользователем.
	ReviewedBy(ctx context.Context, username string, ids []string) (map[string]bool, error)
}

// fileRepo — реализация FileRepository.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

const fileColumns = `id, original_filename, storage_name, content_type, size, checksum, country,
	urgency, stage, publication_status, status, archived_from, note, note_by, note_at,
	uploaded_by, uploader_role, uploaded_at, approved_at, archived_at, updated_at`

func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	var stg, status string
	var archivedFrom *string
	err := row.Scan(&f.ID, &f.OriginalFilename, &f.StorageName, &f.ContentType, &f.Size,
		&f.Checksum, &f.Country, &f.Urgency, &stg, &f.PublicationStatus, &status,
		&archivedFrom, &f.Note, &f.NoteBy, &f.NoteAt, &f.UploadedBy, &f.UploaderRole,
		&f.UploadedAt, &f.ApprovedAt, &f.ArchivedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.Stage = stage.Stage(stg)
	f.Status = lifecycle.Status(status)
	if archivedFrom != nil {
		from := lifecycle.Status(*archivedFrom)
		f.ArchivedFrom = &from
	}
	return f, nil
}

func archivedFromArg(f *model.FileRecord) *string {
	if f.ArchivedFrom == nil {
		return nil
	}
	s := string(*f.ArchivedFrom)
	return &s
}

func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (id, original_filename, storage_name, content_type, size, checksum,
			country, urgency, stage, publication_status, status, archived_from,
			note, note_by, note_at, uploaded_by, uploader_role, uploaded_at, approved_at, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.OriginalFilename, f.StorageName, f.ContentType, f.Size, f.Checksum,
		f.Country, f.Urgency, string(f.Stage), f.PublicationStatus, string(f.Status), archivedFromArg(f),
		f.Note, f.NoteBy, f.NoteAt, f.UploadedBy, f.UploaderRole, f.UploadedAt, f.ApprovedAt, f.ArchivedAt,
	).Scan(&f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	f, err := scanFile(r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// buildFileWhere строит WHERE-условие для фильтрации файлов.
func buildFileWhere(filters model.FileFilters) *whereBuilder {
	w := newWhere(1)
	if len(filters.Countries) > 0 {
		w.add("country = ANY($%d)", filters.Countries)
	}
	if len(filters.Statuses) > 0 {
		statuses := make([]string, len(filters.Statuses))
		for i, s := range filters.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY($%d)", statuses)
	}
	if filters.Stage != nil {
		w.add("stage = $%d", string(*filters.Stage))
	}
	if filters.Urgency != nil {
		w.add("urgency = $%d", *filters.Urgency)
	}
	if filters.UploadedBy != nil {
		w.add("uploaded_by = $%d", *filters.UploadedBy)
	}
	if filters.UploaderRole != nil {
		w.add("uploader_role = $%d", *filters.UploaderRole)
	}
	return w
}

// fileOrder — порядок сортировки списка.
func fileOrder(filters model.FileFilters) string {
	if len(filters.Statuses) == 1 && filters.Statuses[0] == lifecycle.StatusArchived {
		return "ORDER BY archived_at DESC NULLS LAST, id"
	}
	return "ORDER BY (urgency = 'high') DESC, uploaded_at DESC, id"
}

func (r *fileRepo) List(ctx context.Context, filters model.FileFilters, limit, offset int) ([]*model.FileRecord, error) {
	w := buildFileWhere(filters)
	query := fmt.Sprintf(`SELECT %s FROM files %s %s LIMIT $%d OFFSET $%d`,
		fileColumns, w.sql(), fileOrder(filters), w.next, w.next+1)
	args := append(w.args, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *fileRepo) ListAll(ctx context.Context) ([]*model.FileRecord, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM files ORDER BY id`)
}

func (r *fileRepo) query(ctx context.Context, query string, args ...any) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *fileRepo) Count(ctx context.Context, filters model.FileFilters) (int, error) {
	w := buildFileWhere(filters)
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files `+w.sql(), w.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return count, nil
}

func (r *fileRepo) Mutate(ctx context.Context, id string, fn FileMutator) (*model.FileRecord, error) {
	var result *model.FileRecord
	err := runInTx(ctx, r.db, func(tx pgx.Tx) error {
		f, err := scanFile(tx.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if isNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("ошибка получения файла: %w", err)
		}
		if err := fn(f); err != nil {
			return err
		}

		query := `
			UPDATE files
			SET country = $2, urgency = $3, stage = $4, publication_status = $5,
				status = $6, archived_from = $7, note = $8, note_by = $9, note_at = $10,
				approved_at = $11, archived_at = $12, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`
		if err := tx.QueryRow(ctx, query,
			f.ID, f.Country, f.Urgency, string(f.Stage), f.PublicationStatus,
			string(f.Status), archivedFromArg(f), f.Note, f.NoteBy, f.NoteAt,
			f.ApprovedAt, f.ArchivedAt,
		).Scan(&f.UpdatedAt); err != nil {
			return fmt.Errorf("ошибка обновления файла: %w", err)
		}
		result = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *fileRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fileRepo) SetReviewed(ctx context.Context, fileID, username string, reviewed bool, now time.Time) error {
	if !reviewed {
		if _, err := r.db.Exec(ctx,
			`DELETE FROM file_reviews WHERE file_id = $1 AND username = $2`, fileID, username); err != nil {
			return fmt.Errorf("ошибка снятия отметки: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO file_reviews (file_id, username, reviewed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_id, username) DO UPDATE SET reviewed_at = EXCLUDED.reviewed_at`
	if _, err := r.db.Exec(ctx, query, fileID, username, now); err != nil {
		return fmt.Errorf("ошибка установки отметки: %w", err)
	}
	return nil
}

func (r *fileRepo) ReviewedBy(ctx context.Context, username string, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT file_id FROM file_reviews WHERE username = $1 AND file_id = ANY($2::uuid[])`, username, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отметок: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования отметки: %w", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}
