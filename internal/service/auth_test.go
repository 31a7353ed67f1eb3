package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
)

type authFixture struct {
	svc     *AuthService
	users   *fakeUserRepo
	invites *fakeInviteRepo
	audit   *fakeAuditRepo
}

func newAuthFixture(t *testing.T, opts AuthOptions) *authFixture {
	t.Helper()
	invites := newFakeInviteRepo()
	users := newFakeUserRepo(invites)
	auditRepo := &fakeAuditRepo{}
	audit := NewAuditService(auditRepo, testLogger())
	svc := NewAuthService(users, testHasher(t), nil, audit, opts, testLogger())
	return &authFixture{svc: svc, users: users, invites: invites, audit: auditRepo}
}

func (f *authFixture) addUser(t *testing.T, username, password, role string, active bool, countries ...string) *model.User {
	t.Helper()
	hash, err := f.svc.hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	u := &model.User{
		ID: uuid.New().String(), Username: username, PasswordHash: hash,
		Role: role, Countries: countries, Active: active,
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return u
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{LoginMaxFailures: 5, LoginLockout: time.Minute})
	f.addUser(t, "alice", "secret1", rbac.RoleAdmin, true)
	f.addUser(t, "ghost", "secret1", rbac.RoleUser, false)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"верный пароль", "alice", "secret1", nil},
		{"неверный пароль", "alice", "wrong", ErrInvalidCredentials},
		{"неизвестный пользователь", "nobody", "secret1", ErrInvalidCredentials},
		{"деактивированный пользователь", "ghost", "secret1", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.svc.Login(ctx, tt.username, tt.password, "127.0.0.1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() err = %v, хотели %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && u.Username != tt.username {
				t.Errorf("Username = %q, хотели %q", u.Username, tt.username)
			}
		})
	}

	if e := f.audit.last("auth.login"); e == nil || e.Outcome != model.OutcomeDenied {
		t.Errorf("последняя запись аудита входа = %+v, ожидается denied", e)
	}
}

func TestLogin_Lockout(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{LoginMaxFailures: 3, LoginLockout: time.Minute})
	f.addUser(t, "bob", "secret1", rbac.RoleUser, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Login(ctx, "bob", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("попытка %d: err = %v, ожидается ErrInvalidCredentials", i+1, err)
		}
	}
	// Даже верный пароль отклоняется до истечения блокировки
	if _, err := f.svc.Login(ctx, "bob", "secret1", ""); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("после блокировки: err = %v, ожидается ErrTooManyAttempts", err)
	}
}

func TestLogin_SuccessResetsFailures(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{LoginMaxFailures: 2, LoginLockout: time.Minute})
	f.addUser(t, "carol", "secret1", rbac.RoleUser, true)
	ctx := context.Background()

	_, _ = f.svc.Login(ctx, "carol", "wrong", "")
	if _, err := f.svc.Login(ctx, "carol", "secret1", ""); err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	_, _ = f.svc.Login(ctx, "carol", "wrong", "")
	if _, err := f.svc.Login(ctx, "carol", "secret1", ""); err != nil {
		t.Errorf("счётчик не сброшен после успешного входа: %v", err)
	}
}

// Сценарий: super выпускает X1Y2Z3, регистрация проходит один раз.
func TestRegister_InviteRedeemsOnce(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	ctx := context.Background()
	if err := f.invites.CreateBatch(ctx, []*model.Invite{{Code: "X1Y2Z3", CreatedBy: "root"}}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	u, err := f.svc.Register(ctx, RegisterInput{
		InviteCode: "x1y2z3", Username: "newbie", Password: "secret1", Confirm: "secret1",
	})
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	if u.Role != rbac.RoleUser || len(u.Countries) != 0 {
		t.Errorf("роль = %q %v, хотели user без стран", u.Role, u.Countries)
	}

	_, err = f.svc.Register(ctx, RegisterInput{
		InviteCode: "X1Y2Z3", Username: "second", Password: "secret1", Confirm: "secret1",
	})
	if !errors.Is(err, ErrInviteInvalid) {
		t.Fatalf("повторное погашение: err = %v, ожидается ErrInviteInvalid", err)
	}
	if _, err := f.users.GetByUsername(ctx, "second"); err == nil {
		t.Error("учётная запись second не должна быть создана")
	}
	if e := f.audit.last("auth.register"); e == nil || e.Outcome != model.OutcomeFailed {
		t.Errorf("аудит повторной регистрации = %+v, ожидается failed", e)
	}
}

func TestRegister_CountryInvite(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	ctx := context.Background()
	de := "DE"
	_ = f.invites.CreateBatch(ctx, []*model.Invite{{Code: "DEONLY", Country: &de, CreatedBy: "root"}})

	u, err := f.svc.Register(ctx, RegisterInput{
		InviteCode: "DEONLY", Username: "berlin", Password: "secret1", Confirm: "secret1",
	})
	if err != nil {
		t.Fatalf("Register() ошибка: %v", err)
	}
	if u.Role != rbac.RoleCountry || len(u.Countries) != 1 || u.Countries[0] != "DE" {
		t.Errorf("u = %s %v, хотели country [DE]", u.Role, u.Countries)
	}
}

func TestRegister_SharedCodeReusable(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{InviteCode: "team2024"})
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		u, err := f.svc.Register(ctx, RegisterInput{
			InviteCode: "TEAM2024", Username: name, Password: "secret1", Confirm: "secret1",
		})
		if err != nil {
			t.Fatalf("Register(%s) ошибка: %v", name, err)
		}
		if u.Role != rbac.RoleUser {
			t.Errorf("роль = %q, хотели user", u.Role)
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{InviteCode: "SHARED"})
	ctx := context.Background()
	bad := "not-an-email"

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{"пароли не совпадают", RegisterInput{InviteCode: "SHARED", Username: "alice", Password: "secret1", Confirm: "secret2"}, ErrValidation},
		{"короткий пароль", RegisterInput{InviteCode: "SHARED", Username: "alice", Password: "abc", Confirm: "abc"}, ErrValidation},
		{"короткое имя", RegisterInput{InviteCode: "SHARED", Username: "al", Password: "secret1", Confirm: "secret1"}, ErrValidation},
		{"недопустимые символы", RegisterInput{InviteCode: "SHARED", Username: "al ice", Password: "secret1", Confirm: "secret1"}, ErrValidation},
		{"некорректный e-mail", RegisterInput{InviteCode: "SHARED", Username: "alice", Password: "secret1", Confirm: "secret1", Email: &bad}, ErrValidation},
		{"без кода", RegisterInput{Username: "alice", Password: "secret1", Confirm: "secret1"}, ErrValidation},
		{"неизвестный код", RegisterInput{InviteCode: "NOPE", Username: "alice", Password: "secret1", Confirm: "secret1"}, ErrInviteInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Register(ctx, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() err = %v, хотели %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	ctx := context.Background()
	f.addUser(t, "taken", "secret1", rbac.RoleUser, true)
	_ = f.invites.CreateBatch(ctx, []*model.Invite{{Code: "ONCE01", CreatedBy: "root"}})

	_, err := f.svc.Register(ctx, RegisterInput{
		InviteCode: "ONCE01", Username: "taken", Password: "secret1", Confirm: "secret1",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, ожидается ErrConflict", err)
	}
	// Код не израсходован неудачной регистрацией
	inv, _ := f.invites.Get(ctx, "ONCE01")
	if inv.State(time.Now()) != model.InviteOpen {
		t.Errorf("State() = %q, хотели open", inv.State(time.Now()))
	}
}

func TestPrincipal(t *testing.T) {
	f := newAuthFixture(t, AuthOptions{})
	ctx := context.Background()
	de := f.addUser(t, "de-user", "secret1", rbac.RoleCountry, true, "DE")
	off := f.addUser(t, "off", "secret1", rbac.RoleUser, false)

	p, err := f.svc.Principal(ctx, de.ID)
	if err != nil {
		t.Fatalf("Principal() ошибка: %v", err)
	}
	if p.Role != rbac.RoleCountry || !p.CanSee("DE") || p.CanSee("UK") {
		t.Errorf("p = %+v, ожидается country со scope DE", p)
	}

	if _, err := f.svc.Principal(ctx, off.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("деактивированный: err = %v, ожидается ErrUnauthorized", err)
	}
	if _, err := f.svc.Principal(ctx, uuid.NewString()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("удалённый: err = %v, ожидается ErrUnauthorized", err)
	}
}
