// Пакет openapi — встроенный OpenAPI контракт API File Portal.
package openapi

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var spec []byte

// Spec возвращает исходный текст контракта (YAML).
func Spec() []byte {
	return spec
}

// Load разбирает и валидирует контракт.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("OpenAPI контракт невалиден: %w", err)
	}
	return doc, nil
}
