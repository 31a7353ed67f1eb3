// files.go — обработчики /api/v1/files endpoints.
// Загрузка, список, метаданные, скачивание, отметка просмотра
// и переходы жизненного цикла (approve, unapprove, archive, restore).
package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

const (
	// multipartMemory — часть multipart формы, хранимая в памяти.
	multipartMemory = 32 << 20
	// multipartOverhead — запас на заголовки и поля формы сверх лимита файла.
	multipartOverhead = 1 << 20
)

// UploadFile — POST /api/v1/files.
// multipart/form-data: file (обязательно), country, urgency, stage, publication_status.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.PayloadTooLarge(w, "Файл превышает допустимый размер")
			return
		}
		apierrors.ValidationError(w, "Некорректная multipart форма: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Файл (file) обязателен")
		return
	}
	defer file.Close()

	f, err := h.files.Upload(r.Context(), p, service.UploadInput{
		Body:              file,
		Filename:          header.Filename,
		ContentType:       header.Header.Get("Content-Type"),
		Country:           r.FormValue("country"),
		Urgency:           r.FormValue("urgency"),
		Stage:             r.FormValue("stage"),
		PublicationStatus: r.FormValue("publication_status"),
	})
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка загрузки файла")
		return
	}

	writeJSON(w, http.StatusCreated, mapFile(f, false))
}

// ListFiles — GET /api/v1/files.
// Возвращает файлы в пределах страновой области субъекта.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request, params generated.ListFilesParams) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	limit, offset := paginationDefaults(params.Limit, params.Offset)

	items, total, err := h.files.List(r.Context(), p, service.ListFilesInput{
		Countries:    deref(params.Country),
		Status:       string(deref(params.Status)),
		Stage:        params.Stage,
		Urgency:      params.Urgency,
		UploadedBy:   params.UploadedBy,
		UploaderRole: params.UploaderRole,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения списка файлов")
		return
	}

	writeJSON(w, http.StatusOK, generated.FileListResponse{
		Items:   mapFileItems(items),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// GetFile — GET /api/v1/files/{file_id}.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	item, err := h.files.Get(r.Context(), p, fileId.String())
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка получения файла")
		return
	}

	writeJSON(w, http.StatusOK, mapFile(item.File, item.Reviewed))
}

// UpdateFile — PATCH /api/v1/files/{file_id}.
// Staff меняет срочность, стадию, страну и заметку, остальные — только заметку.
func (h *APIHandler) UpdateFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	var req generated.FileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.files.UpdateMeta(r.Context(), p, fileId.String(), service.MetaUpdate{
		Urgency: req.Urgency,
		Stage:   req.Stage,
		Country: req.Country,
		Note:    req.Note,
	})
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка обновления файла")
		return
	}

	h.writeFile(w, r, p, f)
}

// DeleteFile — DELETE /api/v1/files/{file_id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	if err := h.files.Delete(r.Context(), p, fileId.String()); err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка удаления файла")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadFile — GET /api/v1/files/{file_id}/content.
// Отдаёт содержимое с исходным именем. Поддерживает Range и If-Modified-Since.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	f, blob, err := h.files.Open(r.Context(), p, fileId.String())
	if err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка чтения файла")
		return
	}
	defer blob.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": f.OriginalFilename}))
	w.Header().Set("ETag", `"`+f.Checksum+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	http.ServeContent(w, r, f.OriginalFilename, f.UpdatedAt, blob)
}

// SetFileReviewed — PUT /api/v1/files/{file_id}/review.
// Персональная отметка «просмотрено» текущего пользователя.
func (h *APIHandler) SetFileReviewed(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	var req generated.ReviewUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.files.SetReviewed(r.Context(), p, fileId.String(), req.Reviewed); err != nil {
		apierrors.FromService(w, h.logger, err, "Ошибка отметки просмотра")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApproveFile — POST /api/v1/files/{file_id}/approve.
func (h *APIHandler) ApproveFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.transition(w, r, fileId, h.files.Approve, "Ошибка утверждения файла")
}

// UnapproveFile — POST /api/v1/files/{file_id}/unapprove.
func (h *APIHandler) UnapproveFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.transition(w, r, fileId, h.files.Unapprove, "Ошибка снятия утверждения")
}

// ArchiveFile — POST /api/v1/files/{file_id}/archive.
func (h *APIHandler) ArchiveFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.transition(w, r, fileId, h.files.Archive, "Ошибка архивации файла")
}

// RestoreFile — POST /api/v1/files/{file_id}/restore.
func (h *APIHandler) RestoreFile(w http.ResponseWriter, r *http.Request, fileId generated.FileId) {
	h.transition(w, r, fileId, h.files.Restore, "Ошибка восстановления файла")
}

// transitionFunc — переход жизненного цикла в сервисе файлов.
type transitionFunc func(ctx context.Context, p *rbac.Principal, id string) (*model.FileRecord, error)

func (h *APIHandler) transition(
	w http.ResponseWriter, r *http.Request, fileId generated.FileId, fn transitionFunc, internalMsg string,
) {
	p := requirePrincipal(w, r)
	if p == nil {
		return
	}

	f, err := fn(r.Context(), p, fileId.String())
	if err != nil {
		apierrors.FromService(w, h.logger, err, internalMsg)
		return
	}

	h.writeFile(w, r, p, f)
}

// writeFile отвечает обновлённой записью с отметкой просмотра субъекта.
func (h *APIHandler) writeFile(w http.ResponseWriter, r *http.Request, p *rbac.Principal, f *model.FileRecord) {
	reviewed := false
	if item, err := h.files.Get(r.Context(), p, f.ID); err == nil {
		reviewed = item.Reviewed
	}
	writeJSON(w, http.StatusOK, mapFile(f, reviewed))
}
