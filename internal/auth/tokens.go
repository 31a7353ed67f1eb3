package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken — подпись, срок или issuer токена не прошли проверку.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

// TokenClaims — claims API-токена портала.
type TokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
}

// TokenService выпускает RS256 API-токены и проверяет их через JWKS.
// Публичный ключ публикуется на /.well-known/jwks.json.
type TokenService struct {
	key     *rsa.PrivateKey
	kid     string
	issuer  string
	ttl     time.Duration
	storage jwkset.Storage
	kf      keyfunc.Keyfunc
}

// LoadSigningKey читает RSA-ключ из PEM (PKCS#1 или PKCS#8).
// Пустой путь — генерируется ключ 2048 бит, второй результат true.
func LoadSigningKey(path string) (*rsa.PrivateKey, bool, error) {
	if path == "" {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, false, fmt.Errorf("ошибка генерации RSA-ключа: %w", err)
		}
		return key, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения ключа %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, false, fmt.Errorf("файл %s не содержит PEM-блок", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, false, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка разбора ключа %s: %w", path, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, false, fmt.Errorf("ключ %s не является RSA-ключом", path)
	}
	return key, false, nil
}

// NewTokenService создаёт сервис токенов и публикует публичный ключ в JWKS storage.
func NewTokenService(ctx context.Context, key *rsa.PrivateKey, issuer string, ttl time.Duration) (*TokenService, error) {
	kid, err := keyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	return &TokenService{
		key:     key,
		kid:     kid,
		issuer:  issuer,
		ttl:     ttl,
		storage: storage,
		kf:      kf,
	}, nil
}

// Issue выпускает токен для пользователя.
func (s *TokenService) Issue(userID, username string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl)
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		PreferredUsername: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, exp, nil
}

// Verify проверяет подпись (RS256), срок действия и issuer токена.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.kf.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: отсутствует sub", ErrInvalidToken)
	}
	return claims, nil
}

// JWKS возвращает публичный JWK Set в JSON.
func (s *TokenService) JWKS(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.storage.JSONPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации JWKS: %w", err)
	}
	return raw, nil
}

// KeyID — идентификатор ключа подписи (kid).
func (s *TokenService) KeyID() string { return s.kid }

// TTL — время жизни выпускаемых токенов.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// keyID вычисляет kid как префикс SHA-256 от DER публичного ключа.
func keyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации публичного ключа: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:8]), nil
}
