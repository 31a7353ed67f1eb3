// validation.go — проверка входящих запросов по OpenAPI контракту (kin-openapi).
// Проверяются параметры пути и query, JSON-тела запросов. Тело multipart
// (загрузка файла) не читается: его размер и поля проверяет обработчик.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/goartstore/fileportal/internal/api/errors"
)

// RequestValidator — middleware проверки запросов по контракту.
type RequestValidator struct {
	router routers.Router
	logger *slog.Logger
}

// NewRequestValidator строит маршрутизатор операций по документу OpenAPI.
func NewRequestValidator(doc *openapi3.T, logger *slog.Logger) (*RequestValidator, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения маршрутов OpenAPI: %w", err)
	}
	return &RequestValidator{
		router: router,
		logger: logger.With(slog.String("component", "request_validator")),
	}, nil
}

// Middleware отвечает 400 VALIDATION_ERROR на запрос, не соответствующий контракту.
// Запросы к неизвестным путям пропускаются: 404/405 отдаёт роутер.
// Аутентификация здесь не проверяется, это делает Authenticator.
func (v *RequestValidator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := v.router.FindRoute(r)
			if err != nil {
				if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
					v.logger.Debug("Маршрут OpenAPI не определён",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
					ExcludeRequestBody: isMultipart(r),
				},
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				v.logger.Debug("Запрос не прошёл проверку по контракту",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, validationMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validationMessage сокращает ошибку kin-openapi до сути.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			reason := reqErr.Reason
			if reason == "" && reqErr.Err != nil {
				reason = reqErr.Err.Error()
			}
			return fmt.Sprintf("Некорректный параметр %s: %s", reqErr.Parameter.Name, reason)
		}
		if reqErr.RequestBody != nil {
			return "Тело запроса не соответствует схеме: " + reqErr.Error()
		}
	}
	return "Запрос не соответствует контракту API: " + err.Error()
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
