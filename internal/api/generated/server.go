package generated

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface — обработчики всех операций контракта.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /.well-known/jwks.json)
	GetJWKS(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/openapi.yaml)
	GetOpenAPISpec(w http.ResponseWriter, r *http.Request)

	// (POST /api/v1/auth/login)
	Login(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/auth/logout)
	Logout(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/auth/register)
	Register(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/auth/token)
	IssueToken(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/auth/me)
	GetCurrentUser(w http.ResponseWriter, r *http.Request)

	// (GET /api/v1/files)
	ListFiles(w http.ResponseWriter, r *http.Request, params ListFilesParams)
	// (POST /api/v1/files)
	UploadFile(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/files/{file_id})
	GetFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (PATCH /api/v1/files/{file_id})
	UpdateFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (DELETE /api/v1/files/{file_id})
	DeleteFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (GET /api/v1/files/{file_id}/content)
	DownloadFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (PUT /api/v1/files/{file_id}/review)
	SetFileReviewed(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (POST /api/v1/files/{file_id}/approve)
	ApproveFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (POST /api/v1/files/{file_id}/unapprove)
	UnapproveFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (POST /api/v1/files/{file_id}/archive)
	ArchiveFile(w http.ResponseWriter, r *http.Request, fileId FileId)
	// (POST /api/v1/files/{file_id}/restore)
	RestoreFile(w http.ResponseWriter, r *http.Request, fileId FileId)

	// (GET /api/v1/users)
	ListUsers(w http.ResponseWriter, r *http.Request, params ListUsersParams)
	// (POST /api/v1/users)
	CreateUser(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/users/{user_id})
	GetUser(w http.ResponseWriter, r *http.Request, userId UserId)
	// (PATCH /api/v1/users/{user_id})
	UpdateUser(w http.ResponseWriter, r *http.Request, userId UserId)
	// (DELETE /api/v1/users/{user_id})
	DeleteUser(w http.ResponseWriter, r *http.Request, userId UserId)
	// (POST /api/v1/users/{user_id}/password)
	ResetUserPassword(w http.ResponseWriter, r *http.Request, userId UserId)

	// (GET /api/v1/invites)
	ListInvites(w http.ResponseWriter, r *http.Request, params ListInvitesParams)
	// (POST /api/v1/invites)
	IssueInvites(w http.ResponseWriter, r *http.Request)
	// (DELETE /api/v1/invites/{code})
	RevokeInvite(w http.ResponseWriter, r *http.Request, code InviteCode)

	// (GET /api/v1/audit)
	ListAudit(w http.ResponseWriter, r *http.Request, params ListAuditParams)
}

// MiddlewareFunc — middleware отдельной операции.
type MiddlewareFunc func(http.Handler) http.Handler

// InvalidParamFormatError — параметр не соответствует типу или формату.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper связывает параметры запроса и вызывает обработчик.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// serve оборачивает вызов в middleware операций.
func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	handler := http.Handler(fn)
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// bindPath связывает обязательный параметр пути.
func bindPath(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return nil
}

// bindQuery связывает необязательный query-параметр в стиле form.
func bindQuery(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return nil
}

// --- операции без параметров ---

func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthLive)
}

func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.HealthReady)
}

func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetMetrics)
}

func (siw *ServerInterfaceWrapper) GetJWKS(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetJWKS)
}

func (siw *ServerInterfaceWrapper) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetOpenAPISpec)
}

func (siw *ServerInterfaceWrapper) Login(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.Login)
}

func (siw *ServerInterfaceWrapper) Logout(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.Logout)
}

func (siw *ServerInterfaceWrapper) Register(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.Register)
}

func (siw *ServerInterfaceWrapper) IssueToken(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.IssueToken)
}

func (siw *ServerInterfaceWrapper) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetCurrentUser)
}

func (siw *ServerInterfaceWrapper) UploadFile(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.UploadFile)
}

func (siw *ServerInterfaceWrapper) CreateUser(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.CreateUser)
}

func (siw *ServerInterfaceWrapper) IssueInvites(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.IssueInvites)
}

// --- операции с query-параметрами ---

func (siw *ServerInterfaceWrapper) ListFiles(w http.ResponseWriter, r *http.Request) {
	var params ListFilesParams
	for name, dest := range map[string]any{
		"limit":         &params.Limit,
		"offset":        &params.Offset,
		"country":       &params.Country,
		"status":        &params.Status,
		"stage":         &params.Stage,
		"urgency":       &params.Urgency,
		"uploaded_by":   &params.UploadedBy,
		"uploader_role": &params.UploaderRole,
	} {
		if err := bindQuery(r, name, dest); err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListFiles(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) ListUsers(w http.ResponseWriter, r *http.Request) {
	var params ListUsersParams
	for name, dest := range map[string]any{
		"limit":  &params.Limit,
		"offset": &params.Offset,
		"role":   &params.Role,
		"active": &params.Active,
	} {
		if err := bindQuery(r, name, dest); err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListUsers(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) ListInvites(w http.ResponseWriter, r *http.Request) {
	var params ListInvitesParams
	for name, dest := range map[string]any{
		"limit":  &params.Limit,
		"offset": &params.Offset,
		"state":  &params.State,
	} {
		if err := bindQuery(r, name, dest); err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListInvites(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) ListAudit(w http.ResponseWriter, r *http.Request) {
	var params ListAuditParams
	for name, dest := range map[string]any{
		"limit":   &params.Limit,
		"offset":  &params.Offset,
		"actor":   &params.Actor,
		"action":  &params.Action,
		"target":  &params.Target,
		"outcome": &params.Outcome,
	} {
		if err := bindQuery(r, name, dest); err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListAudit(w, r, params)
	})
}

// --- операции с параметрами пути ---

// fileOp связывает file_id и вызывает обработчик.
func (siw *ServerInterfaceWrapper) fileOp(fn func(w http.ResponseWriter, r *http.Request, fileId FileId)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fileId FileId
		if err := bindPath(r, "file_id", &fileId); err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
		siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, fileId)
		})
	}
}

// userOp связывает user_id и вызывает обработчик.
func (siw *ServerInterfaceWrapper) userOp(fn func(w http.ResponseWriter, r *http.Request, userId UserId)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userId UserId
		if err := bindPath(r, "user_id", &userId); err != nil {
			siw.ErrorHandlerFunc(w, r, err)
			return
		}
		siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, userId)
		})
	}
}

func (siw *ServerInterfaceWrapper) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	var code InviteCode
	if err := bindPath(r, "code", &code); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.RevokeInvite(w, r, code)
	})
}

// ChiServerOptions — параметры монтирования маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux монтирует маршруты ServerInterface на существующий роутер.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions монтирует маршруты с заданными параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := &ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}
	base := options.BaseURL

	r.Group(func(r chi.Router) {
		r.Get(base+"/health/live", wrapper.HealthLive)
		r.Get(base+"/health/ready", wrapper.HealthReady)
		r.Get(base+"/metrics", wrapper.GetMetrics)
		r.Get(base+"/.well-known/jwks.json", wrapper.GetJWKS)
		r.Get(base+"/api/v1/openapi.yaml", wrapper.GetOpenAPISpec)

		r.Post(base+"/api/v1/auth/login", wrapper.Login)
		r.Post(base+"/api/v1/auth/logout", wrapper.Logout)
		r.Post(base+"/api/v1/auth/register", wrapper.Register)
		r.Post(base+"/api/v1/auth/token", wrapper.IssueToken)
		r.Get(base+"/api/v1/auth/me", wrapper.GetCurrentUser)

		r.Get(base+"/api/v1/files", wrapper.ListFiles)
		r.Post(base+"/api/v1/files", wrapper.UploadFile)
		r.Get(base+"/api/v1/files/{file_id}", wrapper.fileOp(si.GetFile))
		r.Patch(base+"/api/v1/files/{file_id}", wrapper.fileOp(si.UpdateFile))
		r.Delete(base+"/api/v1/files/{file_id}", wrapper.fileOp(si.DeleteFile))
		r.Get(base+"/api/v1/files/{file_id}/content", wrapper.fileOp(si.DownloadFile))
		r.Put(base+"/api/v1/files/{file_id}/review", wrapper.fileOp(si.SetFileReviewed))
		r.Post(base+"/api/v1/files/{file_id}/approve", wrapper.fileOp(si.ApproveFile))
		r.Post(base+"/api/v1/files/{file_id}/unapprove", wrapper.fileOp(si.UnapproveFile))
		r.Post(base+"/api/v1/files/{file_id}/archive", wrapper.fileOp(si.ArchiveFile))
		r.Post(base+"/api/v1/files/{file_id}/restore", wrapper.fileOp(si.RestoreFile))

		r.Get(base+"/api/v1/users", wrapper.ListUsers)
		r.Post(base+"/api/v1/users", wrapper.CreateUser)
		r.Get(base+"/api/v1/users/{user_id}", wrapper.userOp(si.GetUser))
		r.Patch(base+"/api/v1/users/{user_id}", wrapper.userOp(si.UpdateUser))
		r.Delete(base+"/api/v1/users/{user_id}", wrapper.userOp(si.DeleteUser))
		r.Post(base+"/api/v1/users/{user_id}/password", wrapper.userOp(si.ResetUserPassword))

		r.Get(base+"/api/v1/invites", wrapper.ListInvites)
		r.Post(base+"/api/v1/invites", wrapper.IssueInvites)
		r.Delete(base+"/api/v1/invites/{code}", wrapper.RevokeInvite)

		r.Get(base+"/api/v1/audit", wrapper.ListAudit)
	})
	return r
}
