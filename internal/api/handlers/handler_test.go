package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/fileportal/internal/api/generated"
	"github.com/bigkaa/goartstore/fileportal/internal/api/middleware"
	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/stage"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

var adminP = &rbac.Principal{UserID: "u-admin", Username: "admin", Role: rbac.RoleAdmin}

// --- заглушки сервисов ---
// Встроенный интерфейс закрывает методы, не нужные тесту (вызов паникует).

type stubAuth struct {
	AuthAPI
	user     *model.User
	err      error
	register service.RegisterInput
}

func (s *stubAuth) Login(_ context.Context, username, password, _ string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func (s *stubAuth) IssueToken(_ context.Context, _, _, _ string) (string, time.Time, error) {
	if s.err != nil {
		return "", time.Time{}, s.err
	}
	return "token-value", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (s *stubAuth) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
	s.register = in
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

type stubFiles struct {
	FileAPI
	record   *model.FileRecord
	reviewed bool
	err      error
	upload   service.UploadInput
	body     []byte
	list     service.ListFilesInput
	blobPath string
}

func (s *stubFiles) Upload(_ context.Context, _ *rbac.Principal, in service.UploadInput) (*model.FileRecord, error) {
	s.upload = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	s.body = body
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubFiles) List(_ context.Context, _ *rbac.Principal, in service.ListFilesInput) ([]service.FileItem, int, error) {
	s.list = in
	if s.err != nil {
		return nil, 0, s.err
	}
	return []service.FileItem{{File: s.record, Reviewed: s.reviewed}}, 3, nil
}

func (s *stubFiles) Get(_ context.Context, _ *rbac.Principal, _ string) (*service.FileItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.FileItem{File: s.record, Reviewed: s.reviewed}, nil
}

func (s *stubFiles) Open(_ context.Context, _ *rbac.Principal, _ string) (*model.FileRecord, *os.File, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	f, err := os.Open(s.blobPath)
	if err != nil {
		return nil, nil, err
	}
	return s.record, f, nil
}

func (s *stubFiles) Approve(_ context.Context, _ *rbac.Principal, _ string) (*model.FileRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	approved := *s.record
	approved.Status = lifecycle.StatusApproved
	return &approved, nil
}

type stubInvites struct {
	InviteAPI
	issued service.IssueInvitesInput
}

func (s *stubInvites) Issue(_ context.Context, _ *rbac.Principal, in service.IssueInvitesInput) ([]*model.Invite, error) {
	s.issued = in
	return []*model.Invite{{Code: "ABC123", CreatedBy: "admin", CreatedAt: s.Now()}}, nil
}

func (s *stubInvites) Now() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

type stubChecker struct {
	name, status string
}

func (c stubChecker) Name() string                 { return c.name }
func (c stubChecker) CheckReady() (string, string) { return c.status, "" }

// --- общие помощники ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() *model.FileRecord {
	return &model.FileRecord{
		ID:               "5f0c3a1e-8d2b-4c7a-9e11-2b3c4d5e6f70",
		OriginalFilename: "отчёт.pdf",
		StorageName:      "5f0c3a1e-8d2b-4c7a-9e11-2b3c4d5e6f70.pdf",
		ContentType:      "application/pdf",
		Size:             8,
		Checksum:         "abc",
		Country:          "DE",
		Urgency:          "normal",
		Stage:            stage.FirstDraft,
		Status:           lifecycle.StatusActive,
		UploadedBy:       "admin",
		UploaderRole:     rbac.RoleAdmin,
		UploadedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestHandler(t *testing.T, svc Services, maxUpload int64) *APIHandler {
	t.Helper()
	sessions, err := auth.NewSessionManager("test-secret", false, time.Hour)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return NewAPIHandler(NewHealthHandler(), svc, sessions, maxUpload, testLogger())
}

func asPrincipal(r *http.Request, p *rbac.Principal) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), p))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("декодирование ошибки: %v", err)
	}
	return body.Error.Code
}

// --- тесты ---

func TestPaginationDefaults(t *testing.T) {
	intp := func(v int) *int { return &v }
	tests := []struct {
		name       string
		limit      *int
		offset     *int
		wantLimit  int
		wantOffset int
	}{
		{"по умолчанию", nil, nil, 100, 0},
		{"в пределах", intp(20), intp(40), 20, 40},
		{"limit меньше 1", intp(0), nil, 1, 0},
		{"limit больше 1000", intp(5000), nil, 1000, 0},
		{"отрицательный offset", nil, intp(-5), 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, o := paginationDefaults(tt.limit, tt.offset)
			if l != tt.wantLimit || o != tt.wantOffset {
				t.Errorf("paginationDefaults = (%d, %d), хотели (%d, %d)", l, o, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{"все ok", []ReadinessChecker{stubChecker{"postgresql", "ok"}, stubChecker{"storage", "ok"}}, http.StatusOK, "ok"},
		{"degraded", []ReadinessChecker{stubChecker{"postgresql", "ok"}, stubChecker{"storage", "degraded"}}, http.StatusOK, "degraded"},
		{"fail", []ReadinessChecker{stubChecker{"postgresql", "fail"}, stubChecker{"storage", "ok"}}, http.StatusServiceUnavailable, "fail"},
		{"без зависимостей", nil, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checkers...).HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
			var resp healthReadyResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("декодирование: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status = %q, хотели %q", resp.Status, tt.wantBody)
			}
			if len(resp.Checks) != len(tt.checkers) {
				t.Errorf("checks = %d, хотели %d", len(resp.Checks), len(tt.checkers))
			}
		})
	}
}

func TestLogin(t *testing.T) {
	u := &model.User{ID: uuid.NewString(), Username: "admin", Role: rbac.RoleAdmin, Active: true}

	t.Run("успешный вход ставит cookie", func(t *testing.T) {
		h := newTestHandler(t, Services{Auth: &stubAuth{user: u}}, 0)
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"secret1"}`)))

		if rec.Code != http.StatusOK {
			t.Fatalf("статус = %d, хотели 200", rec.Code)
		}
		var found bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == auth.SessionCookieName && c.Value != "" {
				found = true
			}
		}
		if !found {
			t.Error("ожидается cookie сессии")
		}
	})

	t.Run("неверный пароль", func(t *testing.T) {
		h := newTestHandler(t, Services{Auth: &stubAuth{err: fmt.Errorf("вход: %w", service.ErrInvalidCredentials)}}, 0)
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"bad"}`)))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("статус = %d, хотели 401", rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("cookie не должен устанавливаться")
		}
	})

	t.Run("блокировка", func(t *testing.T) {
		h := newTestHandler(t, Services{Auth: &stubAuth{err: service.ErrTooManyAttempts}}, 0)
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"bad"}`)))

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("статус = %d, хотели 429", rec.Code)
		}
	})

	t.Run("некорректный JSON", func(t *testing.T) {
		h := newTestHandler(t, Services{Auth: &stubAuth{user: u}}, 0)
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{`)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("статус = %d, хотели 400", rec.Code)
		}
	})
}

func TestRegister(t *testing.T) {
	u := &model.User{ID: uuid.NewString(), Username: "newbie", Role: rbac.RoleUser, Active: true}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"успех", nil, http.StatusCreated, ""},
		{"приглашение недействительно", service.ErrInviteInvalid, http.StatusGone, "INVITE_INVALID"},
		{"занятое имя", fmt.Errorf("%w: username", service.ErrConflict), http.StatusConflict, "CONFLICT"},
		{"пароли не совпадают", fmt.Errorf("%w: пароли не совпадают", service.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAuth{user: u, err: tt.err}
			h := newTestHandler(t, Services{Auth: stub}, 0)
			rec := httptest.NewRecorder()
			h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(
				`{"invite_code":"abc123","username":"newbie","password":"secret1","password_confirm":"secret1","email":"n@example.com"}`)))

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec); code != tt.wantCode {
					t.Errorf("code = %q, хотели %q", code, tt.wantCode)
				}
			}
			if stub.register.Email == nil || *stub.register.Email != "n@example.com" {
				t.Errorf("Email = %v, ожидается n@example.com", stub.register.Email)
			}
			if stub.register.Confirm != "secret1" {
				t.Errorf("Confirm = %q, хотели %q", stub.register.Confirm, "secret1")
			}
		})
	}
}

func TestRequiresPrincipal(t *testing.T) {
	h := newTestHandler(t, Services{Files: &stubFiles{record: testRecord()}}, 0)
	rec := httptest.NewRecorder()
	h.GetFile(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/x", nil), uuid.New())

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("статус = %d, хотели 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNAUTHORIZED" {
		t.Errorf("code = %q, хотели UNAUTHORIZED", code)
	}
}

// multipartBody собирает форму загрузки.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	t.Run("поля формы передаются в сервис", func(t *testing.T) {
		stub := &stubFiles{record: testRecord()}
		h := newTestHandler(t, Services{Files: stub}, 1024)
		body, ct := multipartBody(t, "report.pdf", []byte("%PDF-1.4"), map[string]string{
			"country": "DE", "urgency": "high", "stage": "first_draft",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		h.UploadFile(rec, asPrincipal(req, adminP))

		if rec.Code != http.StatusCreated {
			t.Fatalf("статус = %d, хотели 201 (%s)", rec.Code, rec.Body.String())
		}
		if stub.upload.Filename != "report.pdf" || stub.upload.Country != "DE" || stub.upload.Urgency != "high" {
			t.Errorf("UploadInput = %+v", stub.upload)
		}
		if string(stub.body) != "%PDF-1.4" {
			t.Errorf("тело = %q, хотели %q", stub.body, "%PDF-1.4")
		}
	})

	t.Run("без файла", func(t *testing.T) {
		h := newTestHandler(t, Services{Files: &stubFiles{record: testRecord()}}, 1024)
		body, ct := multipartBody(t, "", nil, map[string]string{"country": "DE"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		h.UploadFile(rec, asPrincipal(req, adminP))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("статус = %d, хотели 400", rec.Code)
		}
	})

	t.Run("тело больше лимита", func(t *testing.T) {
		h := newTestHandler(t, Services{Files: &stubFiles{record: testRecord()}}, 16)
		body, ct := multipartBody(t, "big.pdf", bytes.Repeat([]byte("x"), 2<<20), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		h.UploadFile(rec, asPrincipal(req, adminP))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("статус = %d, хотели 413", rec.Code)
		}
	})

	t.Run("лимит сервиса", func(t *testing.T) {
		stub := &stubFiles{record: testRecord(), err: service.ErrTooLarge}
		h := newTestHandler(t, Services{Files: stub}, 1024)
		body, ct := multipartBody(t, "report.pdf", []byte("%PDF-1.4"), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
		req.Header.Set("Content-Type", ct)

		rec := httptest.NewRecorder()
		h.UploadFile(rec, asPrincipal(req, adminP))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("статус = %d, хотели 413", rec.Code)
		}
	})
}

func TestListFiles(t *testing.T) {
	stub := &stubFiles{record: testRecord(), reviewed: true}
	h := newTestHandler(t, Services{Files: stub}, 0)

	limit := 1
	countries := []string{"DE", "FR"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	rec := httptest.NewRecorder()
	status := generated.ListFilesParamsStatusArchived
	h.ListFiles(rec, asPrincipal(req, adminP), generated.ListFilesParams{
		Limit:   &limit,
		Country: &countries,
		Status:  &status,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, хотели 200", rec.Code)
	}
	var resp struct {
		Items []struct {
			Reviewed   bool   `json:"reviewed"`
			StageLabel string `json:"stage_label"`
		} `json:"items"`
		Total   int  `json:"total"`
		HasMore bool `json:"has_more"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if resp.Total != 3 || !resp.HasMore {
		t.Errorf("total = %d, has_more = %v, хотели 3 и true", resp.Total, resp.HasMore)
	}
	if len(resp.Items) != 1 || !resp.Items[0].Reviewed || resp.Items[0].StageLabel != stage.FirstDraft.Label() {
		t.Errorf("items = %+v", resp.Items)
	}
	if len(stub.list.Countries) != 2 || stub.list.Status != "archived" || stub.list.Limit != 1 {
		t.Errorf("ListFilesInput = %+v", stub.list)
	}
}

func TestDownloadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	h := newTestHandler(t, Services{Files: &stubFiles{record: testRecord(), blobPath: path}}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/x/content", nil)
	rec := httptest.NewRecorder()
	h.DownloadFile(rec, asPrincipal(req, adminP), uuid.New())

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, хотели 200", rec.Code)
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Errorf("тело = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, хотели application/pdf", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, "filename*=utf-8''") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestFileErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"не найден", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"чужая страна", service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"недопустимый переход", fmt.Errorf("%w: approve из archived", service.ErrConflict), http.StatusConflict, "CONFLICT"},
		{"хранилище", fmt.Errorf("%w: диск", service.ErrStorage), http.StatusInternalServerError, "STORAGE_ERROR"},
		{"неизвестная", fmt.Errorf("сбой"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, Services{Files: &stubFiles{record: testRecord(), err: tt.err}}, 0)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/files/x/approve", nil)
			rec := httptest.NewRecorder()
			h.ApproveFile(rec, asPrincipal(req, adminP), uuid.New())

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("code = %q, хотели %q", code, tt.wantCode)
			}
		})
	}
}

func TestApproveFile(t *testing.T) {
	h := newTestHandler(t, Services{Files: &stubFiles{record: testRecord()}}, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/x/approve", nil)
	rec := httptest.NewRecorder()
	h.ApproveFile(rec, asPrincipal(req, adminP), uuid.New())

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, хотели 200", rec.Code)
	}
	var resp struct {
		Status   string `json:"status"`
		Approved bool   `json:"approved"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if resp.Status != "approved" || !resp.Approved {
		t.Errorf("status = %q, approved = %v", resp.Status, resp.Approved)
	}
}

func TestIssueInvites_TTL(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTTL    *time.Duration
	}{
		{"срок по умолчанию", `{"count":2}`, http.StatusCreated, nil},
		{"бессрочно", `{"ttl_hours":0}`, http.StatusCreated, durationPtr(0)},
		{"48 часов", `{"ttl_hours":48}`, http.StatusCreated, durationPtr(48 * time.Hour)},
		{"отрицательный", `{"ttl_hours":-1}`, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubInvites{}
			h := newTestHandler(t, Services{Invites: stub}, 0)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/invites", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.IssueInvites(rec, asPrincipal(req, adminP))

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
			if rec.Code != http.StatusCreated {
				return
			}
			switch {
			case tt.wantTTL == nil && stub.issued.TTL != nil:
				t.Errorf("TTL = %v, ожидается nil", *stub.issued.TTL)
			case tt.wantTTL != nil && (stub.issued.TTL == nil || *stub.issued.TTL != *tt.wantTTL):
				t.Errorf("TTL = %v, хотели %v", stub.issued.TTL, *tt.wantTTL)
			}
		})
	}
}

func TestGetJWKS_Disabled(t *testing.T) {
	h := newTestHandler(t, Services{}, 0)
	rec := httptest.NewRecorder()
	h.GetJWKS(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус = %d, хотели 404", rec.Code)
	}
}

func TestGetOpenAPISpec(t *testing.T) {
	h := newTestHandler(t, Services{}, 0)
	rec := httptest.NewRecorder()
	h.GetOpenAPISpec(rec, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, хотели 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "openapi: 3.0.3") {
		t.Error("ожидается документ OpenAPI 3.0.3")
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }
