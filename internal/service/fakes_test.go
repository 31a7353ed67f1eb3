package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/goartstore/fileportal/internal/auth"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/lifecycle"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/repository"
)

var testCountries = []string{"UK", "DE", "IT", "FR", "ES"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	return h
}

// --- fakeAuditRepo ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
	err     error
}

func (r *fakeAuditRepo) Insert(_ context.Context, e *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	e.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, f model.AuditFilters, limit, offset int) ([]*model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.Outcome != nil && e.Outcome != *f.Outcome {
			continue
		}
		out = append(out, e)
	}
	return page(out, limit, offset), nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, f model.AuditFilters) (int, error) {
	all, _ := r.List(ctx, f, 0, 0)
	return len(all), nil
}

// last возвращает последнюю запись с указанным действием.
func (r *fakeAuditRepo) last(action string) *model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].Action == action {
			return r.entries[i]
		}
	}
	return nil
}

// --- fakeInviteRepo ---

type fakeInviteRepo struct {
	mu      sync.Mutex
	invites map[string]*model.Invite
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{invites: make(map[string]*model.Invite)}
}

func (r *fakeInviteRepo) CreateBatch(_ context.Context, batch []*model.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range batch {
		if _, ok := r.invites[inv.Code]; ok {
			return repository.ErrConflict
		}
	}
	for _, inv := range batch {
		inv.CreatedAt = time.Now().UTC()
		c := *inv
		r.invites[inv.Code] = &c
	}
	return nil
}

func (r *fakeInviteRepo) Get(_ context.Context, code string) (*model.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *inv
	return &c, nil
}

func (r *fakeInviteRepo) List(_ context.Context, state string, now time.Time, limit, offset int) ([]*model.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invite
	for _, inv := range r.invites {
		if state == "" || inv.State(now) == state {
			c := *inv
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, offset), nil
}

func (r *fakeInviteRepo) Count(ctx context.Context, state string, now time.Time) (int, error) {
	all, _ := r.List(ctx, state, now, 0, 0)
	return len(all), nil
}

func (r *fakeInviteRepo) HasOpen(ctx context.Context, now time.Time) (bool, error) {
	n, _ := r.Count(ctx, model.InviteOpen, now)
	return n > 0, nil
}

func (r *fakeInviteRepo) Revoke(_ context.Context, code string, now time.Time) (*model.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if inv.UsedAt != nil {
		return nil, repository.ErrConflict
	}
	if inv.RevokedAt == nil {
		inv.RevokedAt = &now
	}
	c := *inv
	return &c, nil
}

// redeem — условное погашение под блокировкой.
func (r *fakeInviteRepo) redeem(code, username string, now time.Time) (*model.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invites[code]
	if !ok || inv.State(now) != model.InviteOpen {
		return nil, repository.ErrInviteInvalid
	}
	inv.UsedBy, inv.UsedAt = &username, &now
	c := *inv
	return &c, nil
}

func (r *fakeInviteRepo) unredeem(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invites[code]; ok {
		inv.UsedBy, inv.UsedAt = nil, nil
	}
}

// --- fakeUserRepo ---

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	invites *fakeInviteRepo
}

func newFakeUserRepo(invites *fakeInviteRepo) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), invites: invites}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(u)
}

func (r *fakeUserRepo) insert(u *model.User) error {
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrConflict
		}
	}
	u.CreatedAt, u.UpdatedAt = time.Now().UTC(), time.Now().UTC()
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *fakeUserRepo) CreateWithInvite(_ context.Context, u *model.User, code string, now time.Time,
	redeem func(inv *model.Invite, u *model.User) error,
) (*model.Invite, error) {
	inv, err := r.invites.redeem(code, u.Username, now)
	if err != nil {
		return nil, err
	}
	if redeem != nil {
		if err := redeem(inv, u); err != nil {
			r.invites.unredeem(code)
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.insert(u); err != nil {
		r.invites.unredeem(code)
		return nil, err
	}
	return inv, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context, f model.UserFilters, limit, offset int) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return page(out, limit, offset), nil
}

func (r *fakeUserRepo) Count(ctx context.Context, f model.UserFilters) (int, error) {
	all, _ := r.List(ctx, f, 0, 0)
	return len(all), nil
}

func (r *fakeUserRepo) activeSupers() int {
	n := 0
	for _, u := range r.users {
		if u.Role == rbac.RoleSuper && u.Active {
			n++
		}
	}
	return n
}

func (r *fakeUserRepo) Mutate(_ context.Context, id string, guard repository.UserGuard) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	if err := guard(&c, r.activeSupers()); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	r.users[id] = &c
	out := c
	return &out, nil
}

func (r *fakeUserRepo) SetPassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeUserRepo) DeleteGuarded(_ context.Context, id string, guard repository.UserGuard) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	if err := guard(&c, r.activeSupers()); err != nil {
		return nil, err
	}
	delete(r.users, id)
	return &c, nil
}

func (r *fakeUserRepo) CountActiveSupers(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeSupers(), nil
}

// --- fakeFileRepo ---

type fakeFileRepo struct {
	mu      sync.Mutex
	files   map[string]*model.FileRecord
	reviews map[string]map[string]bool
	// mutateErr — ошибка «фиксации» после успешного fn
	mutateErr error
	createErr error
	// afterListAll вызывается после снимка ListAll
	afterListAll func()
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{
		files:   make(map[string]*model.FileRecord),
		reviews: make(map[string]map[string]bool),
	}
}

func cloneFile(f *model.FileRecord) *model.FileRecord {
	c := *f
	return &c
}

func (r *fakeFileRepo) Create(_ context.Context, f *model.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.files[f.ID]; ok {
		return repository.ErrConflict
	}
	f.UpdatedAt = time.Now().UTC()
	r.files[f.ID] = cloneFile(f)
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneFile(f), nil
}

func (r *fakeFileRepo) filter(ff model.FileFilters) []*model.FileRecord {
	var out []*model.FileRecord
	for _, f := range r.files {
		if len(ff.Countries) > 0 && !slices.Contains(ff.Countries, f.Country) {
			continue
		}
		if len(ff.Statuses) > 0 && !slices.Contains(ff.Statuses, f.Status) {
			continue
		}
		if ff.Stage != nil && f.Stage != *ff.Stage {
			continue
		}
		if ff.Urgency != nil && f.Urgency != *ff.Urgency {
			continue
		}
		if ff.UploadedBy != nil && f.UploadedBy != *ff.UploadedBy {
			continue
		}
		out = append(out, cloneFile(f))
	}
	sort.Slice(out, func(i, j int) bool {
		hi, hj := out[i].Urgency == model.UrgencyHigh, out[j].Urgency == model.UrgencyHigh
		if hi != hj {
			return hi
		}
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakeFileRepo) List(_ context.Context, ff model.FileFilters, limit, offset int) ([]*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return page(r.filter(ff), limit, offset), nil
}

func (r *fakeFileRepo) Count(_ context.Context, ff model.FileFilters) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.filter(ff)), nil
}

func (r *fakeFileRepo) ListAll(_ context.Context) ([]*model.FileRecord, error) {
	r.mu.Lock()
	out := r.filter(model.FileFilters{})
	r.mu.Unlock()
	if r.afterListAll != nil {
		r.afterListAll()
	}
	return out, nil
}

func (r *fakeFileRepo) Mutate(_ context.Context, id string, fn repository.FileMutator) (*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneFile(f)
	if err := fn(c); err != nil {
		return nil, err
	}
	if r.mutateErr != nil {
		return nil, r.mutateErr
	}
	c.UpdatedAt = time.Now().UTC()
	r.files[id] = cloneFile(c)
	return c, nil
}

func (r *fakeFileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.files, id)
	delete(r.reviews, id)
	return nil
}

func (r *fakeFileRepo) SetReviewed(_ context.Context, fileID, username string, reviewed bool, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reviews[fileID] == nil {
		r.reviews[fileID] = make(map[string]bool)
	}
	if reviewed {
		r.reviews[fileID][username] = true
	} else {
		delete(r.reviews[fileID], username)
	}
	return nil
}

func (r *fakeFileRepo) ReviewedBy(_ context.Context, username string, ids []string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range ids {
		if r.reviews[id][username] {
			out[id] = true
		}
	}
	return out, nil
}

// page применяет limit/offset; limit <= 0 — без ограничения.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// statusPtr — helper для lifecycle.Status.
func statusPtr(s lifecycle.Status) *lifecycle.Status { return &s }

func strPtr(s string) *string { return &s }
