// files.go — загрузка, просмотр, метаданные и жизненный цикл файлов.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/stage"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
	"github.com/bigkaa/goartstore/fileportal/internal/storage/blobstore"
	"github.com/bigkaa/goartstore/fileportal/internal/storage/sidecar"
)

// maxNoteLength — максимальная длина заметки в символах.
const maxNoteLength = 100

// maxFilenameLength — максимальная длина очищенного имени файла.
const maxFilenameLength = 255

// unsafeFilenameChars — символы, заменяемые в имени файла.
var unsafeFilenameChars = regexp.MustCompile(`[^\w\-. ]+`)

// Фильтр статуса в списке файлов.
const (
	// StatusFilterAll — все статусы, включая архив
	StatusFilterAll = "all"
)

// FileOptions — параметры FileService.
type FileOptions struct {
	MaxUploadSize     int64
	AllowedExtensions []string
	Countries         []string
	DefaultCountry    string
	StagePolicy       stage.Policy
	ArchivePolicy     lifecycle.ArchivePolicy
}

// UploadInput — данные загрузки.
type UploadInput struct {
	Body              io.Reader
	Filename          string
	ContentType       string
	Country           string
	Urgency           string
	Stage             string
	PublicationStatus string
}

// ListFilesInput — фильтры списка файлов.
type ListFilesInput struct {
	Countries []string
	// Status — active, approved, archived, all; пусто — всё, кроме архива
	Status       string
	Stage        *string
	Urgency      *string
	UploadedBy   *string
	UploaderRole *string
	Limit        int
	Offset       int
}

// MetaUpdate — изменяемые метаданные. nil — без изменений.
type MetaUpdate struct {
	Urgency *string
	Stage   *string
	Country *string
	Note    *string
}

// FileItem — запись файла с персональной отметкой просмотра.
type FileItem struct {
	File     *model.FileRecord
	Reviewed bool
}

// FileService — сервис файлов.
type FileService struct {
	repo    repository.FileRepository
	store   *blobstore.Store
	audit   *AuditService
	machine *lifecycle.Machine
	opts    FileOptions
	logger  *slog.Logger
	now     func() time.Time
}

// NewFileService создаёт сервис файлов.
func NewFileService(
	repo repository.FileRepository,
	store *blobstore.Store,
	audit *AuditService,
	opts FileOptions,
	logger *slog.Logger,
) (*FileService, error) {
	machine, err := lifecycle.NewMachine(opts.ArchivePolicy)
	if err != nil {
		return nil, err
	}
	if opts.StagePolicy == "" {
		opts.StagePolicy = stage.PolicyFree
	}
	if opts.DefaultCountry == "" && len(opts.Countries) > 0 {
		opts.DefaultCountry = opts.Countries[0]
	}
	return &FileService{
		repo:    repo,
		store:   store,
		audit:   audit,
		machine: machine,
		opts:    opts,
		logger:  logger.With(slog.String("component", "file_service")),
		now:     time.Now,
	}, nil
}

// Upload сохраняет blob в active/ и создаёт запись.
// Если запись не создана, blob удаляется.
func (s *FileService) Upload(ctx context.Context, p *rbac.Principal, in UploadInput) (f *model.FileRecord, err error) {
	target := in.Filename
	defer func() { s.audit.recordResult(ctx, p, string(rbac.ActionFileUpload), target, err) }()

	if !p.Can(rbac.ActionFileUpload) {
		return nil, ErrForbidden
	}

	name := SanitizeFilename(in.Filename)
	if name == "" {
		return nil, fmt.Errorf("%w: пустое имя файла", ErrValidation)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !slices.Contains(s.opts.AllowedExtensions, ext) {
		return nil, fmt.Errorf("%w: недопустимый тип файла %q, разрешены: %s",
			ErrValidation, ext, strings.Join(s.opts.AllowedExtensions, ", "))
	}

	country, err := s.uploadCountry(p, in.Country)
	if err != nil {
		return nil, err
	}

	urgency, err := parseUrgency(in.Urgency)
	if err != nil {
		return nil, err
	}
	stg, err := stage.Normalize(in.Stage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.Role == rbac.RoleUser {
		urgency = model.UrgencyNormal
		stg = stage.FirstDraft
	}

	var publication *string
	if !rbac.IsStaff(p.Role) {
		ps, err := parsePublicationStatus(in.PublicationStatus)
		if err != nil {
			return nil, err
		}
		publication = &ps
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension("." + ext); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	id := uuid.New().String()
	key := blobstore.KeyFor(id, name)
	saved, err := s.store.Save(in.Body, key, s.opts.MaxUploadSize)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			return nil, fmt.Errorf("%w: лимит %d байт", ErrTooLarge, s.opts.MaxUploadSize)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	f = &model.FileRecord{
		ID:                id,
		OriginalFilename:  name,
		StorageName:       key,
		ContentType:       contentType,
		Size:              saved.Size,
		Checksum:          saved.Checksum,
		Country:           country,
		Urgency:           urgency,
		Stage:             stg,
		PublicationStatus: publication,
		Status:            lifecycle.StatusActive,
		UploadedBy:        p.Username,
		UploaderRole:      p.Role,
		UploadedAt:        s.now().UTC(),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if delErr := s.store.Delete(key, lifecycle.AreaActive); delErr != nil {
			s.logger.Error("Не удалось удалить blob после ошибки записи",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("создание записи файла: %w", mapRepoError(err))
	}
	s.writeSidecar(f)

	filesUploadedTotal.Inc()
	target = f.ID
	s.logger.Info("Файл загружен",
		slog.String("file_id", f.ID),
		slog.String("filename", f.OriginalFilename),
		slog.String("country", f.Country),
		slog.Int64("size", f.Size),
		slog.String("uploaded_by", f.UploadedBy),
	)
	return f, nil
}

// uploadCountry определяет страновой тег загрузки.
// Субъект с одной страной в scope всегда получает её; при нескольких
// запрошенная страна должна входить в scope.
func (s *FileService) uploadCountry(p *rbac.Principal, requested string) (string, error) {
	requested = strings.ToUpper(strings.TrimSpace(requested))
	if p.Scoped() {
		if len(p.Countries) == 1 {
			return p.Countries[0], nil
		}
		if requested == "" {
			return "", fmt.Errorf("%w: укажите страну из: %s", ErrValidation, strings.Join(p.Countries, ", "))
		}
		if !p.CanSee(requested) {
			return "", fmt.Errorf("%w: страна %s вне scope", ErrForbidden, requested)
		}
		return requested, nil
	}
	if requested == "" {
		requested = s.opts.DefaultCountry
	}
	if !slices.Contains(s.opts.Countries, requested) {
		return "", fmt.Errorf("%w: неизвестная страна %q", ErrValidation, requested)
	}
	return requested, nil
}

// List возвращает файлы, видимые субъекту, с отметками просмотра.
// Явный фильтр страны вне scope — ErrForbidden.
func (s *FileService) List(ctx context.Context, p *rbac.Principal, in ListFilesInput) ([]FileItem, int, error) {
	if !p.Can(rbac.ActionFileList) {
		return nil, 0, ErrForbidden
	}

	requested := make([]string, 0, len(in.Countries))
	for _, c := range in.Countries {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			requested = append(requested, c)
		}
	}
	countries, ok := p.VisibleCountries(requested)
	if !ok {
		return nil, 0, fmt.Errorf("%w: запрошенная страна вне scope", ErrForbidden)
	}

	filters := model.FileFilters{
		Countries:    countries,
		UploadedBy:   in.UploadedBy,
		UploaderRole: in.UploaderRole,
	}
	switch in.Status {
	case "":
		filters.Statuses = []lifecycle.Status{lifecycle.StatusActive, lifecycle.StatusApproved}
	case StatusFilterAll:
		if !p.Can(rbac.ActionFileViewArchive) {
			filters.Statuses = []lifecycle.Status{lifecycle.StatusActive, lifecycle.StatusApproved}
		}
	default:
		st, err := lifecycle.ParseStatus(in.Status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if st == lifecycle.StatusArchived && !p.Can(rbac.ActionFileViewArchive) {
			return nil, 0, ErrForbidden
		}
		filters.Statuses = []lifecycle.Status{st}
	}
	if in.Stage != nil {
		stg, err := stage.Normalize(*in.Stage)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		filters.Stage = &stg
	}
	if in.Urgency != nil {
		urgency, err := parseUrgency(*in.Urgency)
		if err != nil {
			return nil, 0, err
		}
		filters.Urgency = &urgency
	}

	files, err := s.repo.List(ctx, filters, in.Limit, in.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение файлов: %w", err)
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт файлов: %w", err)
	}

	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	reviewed, err := s.repo.ReviewedBy(ctx, p.Username, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("получение отметок просмотра: %w", err)
	}

	items := make([]FileItem, len(files))
	for i, f := range files {
		items[i] = FileItem{File: f, Reviewed: reviewed[f.ID]}
	}
	return items, total, nil
}

// Get возвращает файл. Запись вне scope — ErrForbidden, а не ErrNotFound.
func (s *FileService) Get(ctx context.Context, p *rbac.Principal, id string) (*FileItem, error) {
	f, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	reviewed, err := s.repo.ReviewedBy(ctx, p.Username, []string{f.ID})
	if err != nil {
		return nil, fmt.Errorf("получение отметок просмотра: %w", err)
	}
	return &FileItem{File: f, Reviewed: reviewed[f.ID]}, nil
}

// Open открывает содержимое файла для скачивания. Вызывающий код закрывает файл.
func (s *FileService) Open(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, *os.File, error) {
	f, err := s.load(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	blob, area, err := s.store.Open(f.StorageName, f.Area())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if area != f.Area() {
		s.logger.Warn("Blob найден не в ожидаемой области",
			slog.String("file_id", f.ID),
			slog.String("expected", string(f.Area())),
			slog.String("actual", string(area)),
		)
	}
	return f, blob, nil
}

// UpdateMeta изменяет метаданные. Staff меняет срочность, стадию, страну
// и заметку, остальные роли — только заметку. У файлов, загруженных
// ролью user, меняется только заметка.
func (s *FileService) UpdateMeta(ctx context.Context, p *rbac.Principal, id string, upd MetaUpdate) (f *model.FileRecord, err error) {
	defer func() { s.audit.recordResult(ctx, p, string(rbac.ActionFileUpdateMeta), id, err) }()

	metaChange := upd.Urgency != nil || upd.Stage != nil || upd.Country != nil
	if metaChange && !p.Can(rbac.ActionFileUpdateMeta) {
		return nil, ErrForbidden
	}
	if upd.Note != nil && !p.Can(rbac.ActionFileNote) {
		return nil, ErrForbidden
	}

	var urgency, country string
	var stg stage.Stage
	if upd.Urgency != nil {
		if urgency, err = parseUrgency(*upd.Urgency); err != nil {
			return nil, err
		}
	}
	if upd.Stage != nil {
		if stg, err = stage.Normalize(*upd.Stage); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if upd.Country != nil {
		country = strings.ToUpper(strings.TrimSpace(*upd.Country))
		if !slices.Contains(s.opts.Countries, country) {
			return nil, fmt.Errorf("%w: неизвестная страна %q", ErrValidation, country)
		}
	}
	var note string
	if upd.Note != nil {
		note = strings.TrimSpace(*upd.Note)
		if utf8.RuneCountInString(note) > maxNoteLength {
			return nil, fmt.Errorf("%w: заметка длиннее %d символов", ErrValidation, maxNoteLength)
		}
	}

	now := s.now().UTC()
	f, err = s.repo.Mutate(ctx, id, func(f *model.FileRecord) error {
		if err := s.checkVisible(p, f); err != nil {
			return err
		}
		if metaChange && f.UploaderRole == rbac.RoleUser {
			return fmt.Errorf("%w: срочность, стадия и страна файлов роли user не меняются", ErrConflict)
		}
		if upd.Urgency != nil {
			f.Urgency = urgency
		}
		if upd.Stage != nil {
			if err := s.opts.StagePolicy.CheckChange(f.Stage, stg); err != nil {
				return fmt.Errorf("%w: %v", ErrConflict, err)
			}
			f.Stage = stg
		}
		if upd.Country != nil {
			f.Country = country
		}
		if upd.Note != nil {
			f.Note = note
			if note == "" {
				f.NoteBy, f.NoteAt = nil, nil
			} else {
				by := p.Username
				f.NoteBy, f.NoteAt = &by, &now
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.writeSidecar(f)
	return f, nil
}

// SetReviewed ставит или снимает персональную отметку «просмотрено».
func (s *FileService) SetReviewed(ctx context.Context, p *rbac.Principal, id string, reviewed bool) (err error) {
	defer func() { s.audit.recordResult(ctx, p, string(rbac.ActionFileReview), id, err) }()

	if !p.Can(rbac.ActionFileReview) {
		return ErrForbidden
	}
	f, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}
	if f.UploaderRole == rbac.RoleUser {
		return fmt.Errorf("%w: файлы роли user не требуют отметки просмотра", ErrConflict)
	}
	if err := s.repo.SetReviewed(ctx, id, p.Username, reviewed, s.now().UTC()); err != nil {
		return fmt.Errorf("сохранение отметки просмотра: %w", err)
	}
	return nil
}

// Approve одобряет файл: active → approved.
func (s *FileService) Approve(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error) {
	return s.transition(ctx, p, id, lifecycle.TransitionApprove, rbac.ActionFileApprove)
}

// Unapprove снимает одобрение: approved → active.
func (s *FileService) Unapprove(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error) {
	return s.transition(ctx, p, id, lifecycle.TransitionUnapprove, rbac.ActionFileApprove)
}

// Archive архивирует файл с запоминанием исходного статуса.
func (s *FileService) Archive(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error) {
	return s.transition(ctx, p, id, lifecycle.TransitionArchive, rbac.ActionFileArchive)
}

// Restore возвращает файл из архива в исходный статус.
func (s *FileService) Restore(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error) {
	return s.transition(ctx, p, id, lifecycle.TransitionRestore, rbac.ActionFileArchive)
}

// transition выполняет переход под блокировкой записи.
// Blob перемещается внутри транзакции; если её фиксация не удалась,
// blob возвращается в исходную область.
func (s *FileService) transition(
	ctx context.Context, p *rbac.Principal, id string, tr lifecycle.Transition, action rbac.Action,
) (f *model.FileRecord, err error) {
	defer func() { s.audit.recordResult(ctx, p, "file."+string(tr), id, err) }()

	if !p.Can(action) {
		return nil, ErrForbidden
	}

	var (
		moved    bool
		key      string
		from, to lifecycle.Area
	)
	now := s.now().UTC()
	f, err = s.repo.Mutate(ctx, id, func(f *model.FileRecord) error {
		if err := s.checkVisible(p, f); err != nil {
			return err
		}
		next, err := s.machine.Apply(f.State(), tr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		key, from, to = f.StorageName, f.Area(), next.Area()
		if err := s.store.Move(key, from, to); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		moved = from != to
		f.SetState(next, now)
		return nil
	})
	if err != nil {
		if moved {
			if backErr := s.store.Move(key, to, from); backErr != nil {
				s.logger.Error("Не удалось вернуть blob после ошибки перехода",
					slog.String("file_id", id),
					slog.String("key", key),
					slog.String("error", backErr.Error()),
				)
			}
		}
		return nil, mapRepoError(err)
	}

	s.writeSidecar(f)
	fileTransitionsTotal.WithLabelValues(string(tr)).Inc()
	s.logger.Info("Переход жизненного цикла",
		slog.String("file_id", f.ID),
		slog.String("transition", string(tr)),
		slog.String("status", string(f.Status)),
		slog.String("actor", p.Username),
	)
	return f, nil
}

// Delete удаляет запись и blob.
// Архивный файл удаляет только purge; иначе delete_any либо delete_own
// для собственного файла в пределах scope.
func (s *FileService) Delete(ctx context.Context, p *rbac.Principal, id string) (err error) {
	defer func() { s.audit.recordResult(ctx, p, "file.delete", id, err) }()

	f, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}
	switch {
	case f.Status == lifecycle.StatusArchived:
		if !p.Can(rbac.ActionFilePurge) {
			return ErrForbidden
		}
	case p.Can(rbac.ActionFileDeleteAny):
	case p.Can(rbac.ActionFileDeleteOwn) && f.UploadedBy == p.Username:
	default:
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return mapRepoError(err)
	}
	// Запись удалена первой: blob без записи находит сверка
	if err := s.store.Delete(f.StorageName, f.Area()); err != nil {
		s.logger.Warn("Не удалось удалить blob",
			slog.String("file_id", f.ID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("Файл удалён",
		slog.String("file_id", f.ID),
		slog.String("actor", p.Username),
	)
	return nil
}

// load читает запись и проверяет доступ.
func (s *FileService) load(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error) {
	if !p.Can(rbac.ActionFileRead) {
		return nil, ErrForbidden
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.checkVisible(p, f); err != nil {
		return nil, err
	}
	return f, nil
}

// checkVisible — запись в scope субъекта, архив — только с view_archive.
func (s *FileService) checkVisible(p *rbac.Principal, f *model.FileRecord) error {
	if !p.CanSee(f.Country) {
		return fmt.Errorf("%w: файл вне странового scope", ErrForbidden)
	}
	if f.Status == lifecycle.StatusArchived && !p.Can(rbac.ActionFileViewArchive) {
		return fmt.Errorf("%w: нет доступа к архиву", ErrForbidden)
	}
	return nil
}

// writeSidecar обновляет sidecar. Ошибка логируется: источник правды — БД.
func (s *FileService) writeSidecar(f *model.FileRecord) {
	if err := s.store.WriteSidecar(f.StorageName, f.Area(), MetaOf(f)); err != nil {
		s.logger.Warn("Не удалось записать sidecar",
			slog.String("file_id", f.ID),
			slog.String("error", err.Error()),
		)
	}
}

// MetaOf формирует содержимое sidecar из записи.
func MetaOf(f *model.FileRecord) *sidecar.Meta {
	m := &sidecar.Meta{
		FileID:            f.ID,
		OriginalFilename:  f.OriginalFilename,
		ContentType:       f.ContentType,
		Size:              f.Size,
		Checksum:          f.Checksum,
		Country:           f.Country,
		Urgency:           f.Urgency,
		Stage:             string(f.Stage),
		PublicationStatus: f.PublicationStatus,
		Status:            string(f.Status),
		Note:              f.Note,
		UploadedBy:        f.UploadedBy,
		UploaderRole:      f.UploaderRole,
		UploadedAt:        f.UploadedAt,
		ApprovedAt:        f.ApprovedAt,
		ArchivedAt:        f.ArchivedAt,
	}
	if f.ArchivedFrom != nil {
		from := string(*f.ArchivedFrom)
		m.ArchivedFrom = &from
	}
	return m
}

// SanitizeFilename заменяет небезопасные символы на "_" и обрезает
// имя до допустимой длины с сохранением расширения.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" || strings.Trim(name, "_") == "" {
		return ""
	}
	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLength {
			ext = ""
		}
		base := name[:maxFilenameLength-len(ext)]
		for !utf8.ValidString(base) {
			base = base[:len(base)-1]
		}
		name = base + ext
	}
	return name
}

func parseUrgency(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", model.UrgencyNormal:
		return model.UrgencyNormal, nil
	case model.UrgencyHigh:
		return model.UrgencyHigh, nil
	default:
		return "", fmt.Errorf("%w: срочность — high или normal", ErrValidation)
	}
}

func parsePublicationStatus(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", model.PublicationNeedsReview:
		return model.PublicationNeedsReview, nil
	case model.PublicationReady:
		return model.PublicationReady, nil
	default:
		return "", fmt.Errorf("%w: статус публикации — ready или needs_review", ErrValidation)
	}
}
