// mappers.go — преобразование доменных моделей в типы API.
package handlers

import (
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

func mapUser(u *model.User) generated.User {
	id, _ := uuid.Parse(u.ID)
	out := generated.User{
		Id:        id,
		Username:  u.Username,
		Role:      u.Role,
		Countries: u.Countries,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if out.Countries == nil {
		out.Countries = []string{}
	}
	if u.Email != nil {
		email := openapi_types.Email(*u.Email)
		out.Email = &email
	}
	return out
}

func mapUsers(users []*model.User) []generated.User {
	out := make([]generated.User, 0, len(users))
	for _, u := range users {
		out = append(out, mapUser(u))
	}
	return out
}

func mapFile(f *model.FileRecord, reviewed bool) generated.FileRecord {
	id, _ := uuid.Parse(f.ID)
	out := generated.FileRecord{
		Id:                id,
		OriginalFilename:  f.OriginalFilename,
		ContentType:       f.ContentType,
		Size:              f.Size,
		Checksum:          f.Checksum,
		Country:           f.Country,
		Urgency:           f.Urgency,
		Stage:             string(f.Stage),
		StageLabel:        f.Stage.Label(),
		PublicationStatus: f.PublicationStatus,
		Status:            string(f.Status),
		Approved:          f.State().Approved(),
		Reviewed:          reviewed,
		NoteBy:            f.NoteBy,
		NoteAt:            f.NoteAt,
		UploadedBy:        f.UploadedBy,
		UploaderRole:      f.UploaderRole,
		UploadedAt:        f.UploadedAt,
		ApprovedAt:        f.ApprovedAt,
		ArchivedAt:        f.ArchivedAt,
	}
	if f.ArchivedFrom != nil {
		from := string(*f.ArchivedFrom)
		out.ArchivedFrom = &from
	}
	if f.Note != "" {
		note := f.Note
		out.Note = &note
	}
	return out
}

func mapFileItems(items []service.FileItem) []generated.FileRecord {
	out := make([]generated.FileRecord, 0, len(items))
	for _, it := range items {
		out = append(out, mapFile(it.File, it.Reviewed))
	}
	return out
}

func mapInvite(inv *model.Invite, state string) generated.Invite {
	return generated.Invite{
		Code:      inv.Code,
		Country:   inv.Country,
		State:     state,
		CreatedBy: inv.CreatedBy,
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
		UsedBy:    inv.UsedBy,
		UsedAt:    inv.UsedAt,
		RevokedAt: inv.RevokedAt,
	}
}

func mapAuditEntry(e *model.AuditEntry) generated.AuditEntry {
	out := generated.AuditEntry{
		Id:      e.ID,
		At:      e.At,
		Actor:   e.Actor,
		Action:  e.Action,
		Target:  e.Target,
		Outcome: e.Outcome,
	}
	if e.Detail != "" {
		detail := e.Detail
		out.Detail = &detail
	}
	return out
}
