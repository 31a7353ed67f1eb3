// Пакет generated — типы и маршрутизация API по контракту
// internal/api/openapi/openapi.yaml в форме chi-server oapi-codegen.
// При изменении контракта типы и ServerInterface изменяются вместе с ним.
package generated

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Идентификаторы в путях.
type (
	// FileId — file_id в пути.
	FileId = openapi_types.UUID
	// UserId — user_id в пути.
	UserId = openapi_types.UUID
	// InviteCode — code в пути.
	InviteCode = string
)

// ErrorDetail — тело ошибки.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error — ответ с ошибкой.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// --- auth ---

// LoginRequest — учётные данные для входа и выпуска токена.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest — саморегистрация по коду приглашения.
type RegisterRequest struct {
	InviteCode      string               `json:"invite_code"`
	Username        string               `json:"username"`
	Password        string               `json:"password"`
	PasswordConfirm string               `json:"password_confirm"`
	Email           *openapi_types.Email `json:"email,omitempty"`
}

// TokenResponse — выпущенный API-токен.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// --- users ---

// User — учётная запись.
type User struct {
	Id        openapi_types.UUID   `json:"id"`
	Username  string               `json:"username"`
	Email     *openapi_types.Email `json:"email,omitempty"`
	Role      string               `json:"role"`
	Countries []string             `json:"countries"`
	Active    bool                 `json:"active"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// UserCreate — создание учётной записи.
type UserCreate struct {
	Username  string               `json:"username"`
	Password  string               `json:"password"`
	Email     *openapi_types.Email `json:"email,omitempty"`
	Role      string               `json:"role"`
	Countries *[]string            `json:"countries,omitempty"`
	Active    *bool                `json:"active,omitempty"`
}

// UserUpdate — изменение роли, scope, активности и e-mail.
// Пустой email удаляет адрес.
type UserUpdate struct {
	Role      *string   `json:"role,omitempty"`
	Countries *[]string `json:"countries,omitempty"`
	Active    *bool     `json:"active,omitempty"`
	Email     *string   `json:"email,omitempty"`
}

// PasswordReset — новый пароль.
type PasswordReset struct {
	Password string `json:"password"`
}

// UserListResponse — страница пользователей.
type UserListResponse struct {
	Items   []User `json:"items"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
}

// ListUsersParams — параметры GET /api/v1/users.
type ListUsersParams struct {
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int    `form:"offset,omitempty" json:"offset,omitempty"`
	Role   *string `form:"role,omitempty" json:"role,omitempty"`
	Active *bool   `form:"active,omitempty" json:"active,omitempty"`
}

// --- files ---

// FileRecord — метаданные файла.
type FileRecord struct {
	Id                openapi_types.UUID `json:"id"`
	OriginalFilename  string             `json:"original_filename"`
	ContentType       string             `json:"content_type"`
	Size              int64              `json:"size"`
	Checksum          string             `json:"checksum"`
	Country           string             `json:"country"`
	Urgency           string             `json:"urgency"`
	Stage             string             `json:"stage"`
	StageLabel        string             `json:"stage_label"`
	PublicationStatus *string            `json:"publication_status,omitempty"`
	Status            string             `json:"status"`
	ArchivedFrom      *string            `json:"archived_from,omitempty"`
	Approved          bool               `json:"approved"`
	Reviewed          bool               `json:"reviewed"`
	Note              *string            `json:"note,omitempty"`
	NoteBy            *string            `json:"note_by,omitempty"`
	NoteAt            *time.Time         `json:"note_at,omitempty"`
	UploadedBy        string             `json:"uploaded_by"`
	UploaderRole      string             `json:"uploader_role"`
	UploadedAt        time.Time          `json:"uploaded_at"`
	ApprovedAt        *time.Time         `json:"approved_at,omitempty"`
	ArchivedAt        *time.Time         `json:"archived_at,omitempty"`
}

// FileUpdate — изменение метаданных файла.
type FileUpdate struct {
	Urgency *string `json:"urgency,omitempty"`
	Stage   *string `json:"stage,omitempty"`
	Country *string `json:"country,omitempty"`
	Note    *string `json:"note,omitempty"`
}

// ReviewUpdate — персональная отметка «просмотрено».
type ReviewUpdate struct {
	Reviewed bool `json:"reviewed"`
}

// FileListResponse — страница файлов.
type FileListResponse struct {
	Items   []FileRecord `json:"items"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"has_more"`
}

// ListFilesParamsStatus — фильтр статуса.
type ListFilesParamsStatus string

// Значения ListFilesParamsStatus.
const (
	ListFilesParamsStatusActive   ListFilesParamsStatus = "active"
	ListFilesParamsStatusApproved ListFilesParamsStatus = "approved"
	ListFilesParamsStatusArchived ListFilesParamsStatus = "archived"
	ListFilesParamsStatusAll      ListFilesParamsStatus = "all"
)

// ListFilesParams — параметры GET /api/v1/files.
type ListFilesParams struct {
	Limit        *int                   `form:"limit,omitempty" json:"limit,omitempty"`
	Offset       *int                   `form:"offset,omitempty" json:"offset,omitempty"`
	Country      *[]string              `form:"country,omitempty" json:"country,omitempty"`
	Status       *ListFilesParamsStatus `form:"status,omitempty" json:"status,omitempty"`
	Stage        *string                `form:"stage,omitempty" json:"stage,omitempty"`
	Urgency      *string                `form:"urgency,omitempty" json:"urgency,omitempty"`
	UploadedBy   *string                `form:"uploaded_by,omitempty" json:"uploaded_by,omitempty"`
	UploaderRole *string                `form:"uploader_role,omitempty" json:"uploader_role,omitempty"`
}

// --- invites ---

// Invite — код приглашения.
type Invite struct {
	Code      string     `json:"code"`
	Country   *string    `json:"country,omitempty"`
	State     string     `json:"state"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// InviteIssueRequest — выпуск приглашений.
type InviteIssueRequest struct {
	Count    *int    `json:"count,omitempty"`
	Length   *int    `json:"length,omitempty"`
	Country  *string `json:"country,omitempty"`
	Code     *string `json:"code,omitempty"`
	TtlHours *int    `json:"ttl_hours,omitempty"`
}

// InviteIssueResponse — выпущенные приглашения.
type InviteIssueResponse struct {
	Items []Invite `json:"items"`
}

// InviteListResponse — страница приглашений.
type InviteListResponse struct {
	Items   []Invite `json:"items"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	HasMore bool     `json:"has_more"`
}

// ListInvitesParams — параметры GET /api/v1/invites.
type ListInvitesParams struct {
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Offset *int    `form:"offset,omitempty" json:"offset,omitempty"`
	State  *string `form:"state,omitempty" json:"state,omitempty"`
}

// --- audit ---

// AuditEntry — запись журнала аудита.
type AuditEntry struct {
	Id      int64     `json:"id"`
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"`
	Action  string    `json:"action"`
	Target  string    `json:"target"`
	Outcome string    `json:"outcome"`
	Detail  *string   `json:"detail,omitempty"`
}

// AuditListResponse — страница журнала аудита.
type AuditListResponse struct {
	Items   []AuditEntry `json:"items"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"has_more"`
}

// ListAuditParams — параметры GET /api/v1/audit.
type ListAuditParams struct {
	Limit   *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Offset  *int    `form:"offset,omitempty" json:"offset,omitempty"`
	Actor   *string `form:"actor,omitempty" json:"actor,omitempty"`
	Action  *string `form:"action,omitempty" json:"action,omitempty"`
	Target  *string `form:"target,omitempty" json:"target,omitempty"`
	Outcome *string `form:"outcome,omitempty" json:"outcome,omitempty"`
}
