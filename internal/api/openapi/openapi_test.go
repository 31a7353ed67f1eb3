package openapi

import (
	"context"
	"testing"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	paths := []string{
		"/api/v1/auth/login",
		"/api/v1/auth/register",
		"/api/v1/files",
		"/api/v1/files/{file_id}",
		"/api/v1/files/{file_id}/content",
		"/api/v1/files/{file_id}/approve",
		"/api/v1/users/{user_id}/password",
		"/api/v1/invites/{code}",
		"/api/v1/audit",
	}
	for _, p := range paths {
		if doc.Paths.Find(p) == nil {
			t.Errorf("путь %s отсутствует в контракте", p)
		}
	}
}
