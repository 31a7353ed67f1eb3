package model

import (
	"time"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/stage"
)

// Срочность файла.
const (
	UrgencyHigh   = "high"
	UrgencyNormal = "normal"
)

// Статус публикации (только для загрузок user и country).
const (
	PublicationReady       = "ready"
	PublicationNeedsReview = "needs_review"
)

// FileRecord — запись файла.
// Хранится в таблице files, blob — в области хранения по Status.
type FileRecord struct {
	// ID — UUID файла, он же стабильный ключ blob-а
	ID string
	// OriginalFilename — очищенное исходное имя файла
	OriginalFilename string
	// StorageName — имя blob-а (<uuid><ext>)
	StorageName string
	ContentType string
	Size        int64
	// Checksum — SHA-256 в hex
	Checksum string
	// Country — страновой тег
	Country string
	// Urgency — high, normal
	Urgency string
	Stage   stage.Stage
	// PublicationStatus — ready, needs_review (nil для загрузок staff)
	PublicationStatus *string
	// Status — единственный источник правды о жизненном цикле
	Status lifecycle.Status
	// ArchivedFrom — статус до архивации
	ArchivedFrom *lifecycle.Status
	// Note — заметка (до 100 символов)
	Note   string
	NoteBy *string
	NoteAt *time.Time
	// UploadedBy — username загрузившего
	UploadedBy   string
	UploaderRole string
	UploadedAt   time.Time
	ApprovedAt   *time.Time
	ArchivedAt   *time.Time
	UpdatedAt    time.Time
}

// State возвращает состояние жизненного цикла.
func (f *FileRecord) State() lifecycle.State {
	s := lifecycle.State{Status: f.Status}
	if f.ArchivedFrom != nil {
		s.ArchivedFrom = *f.ArchivedFrom
	}
	return s
}

// SetState применяет состояние жизненного цикла и отметки времени.
func (f *FileRecord) SetState(s lifecycle.State, now time.Time) {
	f.Status = s.Status
	if s.ArchivedFrom != "" {
		from := s.ArchivedFrom
		f.ArchivedFrom = &from
	} else {
		f.ArchivedFrom = nil
	}
	switch s.Status {
	case lifecycle.StatusApproved:
		// При restore сохраняется исходное время одобрения
		if f.ApprovedAt == nil {
			f.ApprovedAt = &now
		}
		f.ArchivedAt = nil
	case lifecycle.StatusArchived:
		f.ArchivedAt = &now
	case lifecycle.StatusActive:
		f.ApprovedAt = nil
		f.ArchivedAt = nil
	}
}

// Area — область хранения blob-а.
func (f *FileRecord) Area() lifecycle.Area {
	return lifecycle.AreaFor(f.Status)
}

// FileFilters — фильтры списка файлов. nil/пусто — без фильтра.
type FileFilters struct {
	// Countries — допустимые страны (пересечение со scope делает сервис)
	Countries []string
	// Statuses — допустимые статусы
	Statuses     []lifecycle.Status
	Stage        *stage.Stage
	Urgency      *string
	UploadedBy   *string
	UploaderRole *string
}
