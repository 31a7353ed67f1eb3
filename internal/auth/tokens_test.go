package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func newTestTokenService(t *testing.T, key *rsa.PrivateKey, issuer string) *TokenService {
	t.Helper()
	s, err := NewTokenService(context.Background(), key, issuer, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return s
}

// TestTokenIssueVerify проверяет выпуск и проверку токена.
func TestTokenIssueVerify(t *testing.T) {
	s := newTestTokenService(t, generateTestKey(t), "fileportal-test")

	token, exp, err := s.Issue("user-1", "alice", time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("exp = %v, ожидается ~1h", exp)
	}

	claims, err := s.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.PreferredUsername != "alice" {
		t.Errorf("claims = %+v", claims)
	}
}

// TestTokenVerify_Rejects проверяет отказ для чужих, просроченных и чужого issuer токенов.
func TestTokenVerify_Rejects(t *testing.T) {
	key := generateTestKey(t)
	s := newTestTokenService(t, key, "fileportal-test")
	other := newTestTokenService(t, generateTestKey(t), "fileportal-test")
	wrongIssuer := newTestTokenService(t, key, "someone-else")

	expired, _, err := s.Issue("u", "alice", time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	foreign, _, _ := other.Issue("u", "alice", time.Now())
	issuerMismatch, _, _ := wrongIssuer.Issue("u", "alice", time.Now())

	// HS256 токен с тем же kid не принимается
	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u", "iss": "fileportal-test", "exp": time.Now().Add(time.Hour).Unix(),
	})
	hs.Header["kid"] = s.KeyID()
	hsToken, _ := hs.SignedString([]byte("secret"))

	tests := map[string]string{
		"просроченный":   expired,
		"чужой ключ":     foreign,
		"чужой issuer":   issuerMismatch,
		"алгоритм HS256": hsToken,
		"мусор":          "not.a.jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, ожидается ErrInvalidToken", err)
			}
		})
	}
}

// TestJWKS проверяет публикацию только публичной части ключа.
func TestJWKS(t *testing.T) {
	s := newTestTokenService(t, generateTestKey(t), "fileportal-test")

	raw, err := s.JWKS(context.Background())
	if err != nil {
		t.Fatalf("JWKS: %v", err)
	}
	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		t.Fatalf("невалидный JSON: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("ключей = %d, ожидается 1", len(set.Keys))
	}
	k := set.Keys[0]
	if k["kid"] != s.KeyID() || k["kty"] != "RSA" || k["alg"] != "RS256" {
		t.Errorf("JWK = %v", k)
	}
	if _, ok := k["d"]; ok {
		t.Error("JWKS не должен содержать приватную часть ключа")
	}
}

// TestLoadSigningKey проверяет чтение PKCS#1 и PKCS#8 PEM.
func TestLoadSigningKey(t *testing.T) {
	key := generateTestKey(t)
	dir := t.TempDir()

	pkcs1 := filepath.Join(dir, "pkcs1.pem")
	if err := os.WriteFile(pkcs1, pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600); err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	pkcs8 := filepath.Join(dir, "pkcs8.pem")
	if err := os.WriteFile(pkcs8, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{pkcs1, pkcs8} {
		got, generated, err := LoadSigningKey(path)
		if err != nil {
			t.Fatalf("LoadSigningKey(%s): %v", path, err)
		}
		if generated || !got.Equal(key) {
			t.Errorf("LoadSigningKey(%s) вернул другой ключ", path)
		}
	}

	garbage := filepath.Join(dir, "garbage.pem")
	_ = os.WriteFile(garbage, []byte("nope"), 0o600)
	if _, _, err := LoadSigningKey(garbage); err == nil {
		t.Error("ожидалась ошибка для файла без PEM")
	}

	if _, generated, err := LoadSigningKey(""); err != nil || !generated {
		t.Errorf("пустой путь: generated=%v err=%v", generated, err)
	}
}
