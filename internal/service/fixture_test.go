package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"catalog/internal/auth"
	"catalog/internal/authz"
	"catalog/internal/database/dbtest"
	"catalog/internal/model"
	"catalog/internal/repository"
	"catalog/internal/service"
	"catalog/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifData = []byte("GIF89a\x01\x00\x01\x00")
)

func png(name string) storage.Upload {
	return storage.Upload{Filename: name, ContentType: "image/png", Data: pngData}
}

type event struct {
	Name string
	ID   uint
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Publish(name string, id uint, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name, id})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

// flakyStore wraps a BlobStore and fails chosen calls.
type flakyStore struct {
	storage.BlobStore
	mu        sync.Mutex
	calls     int
	failCalls map[int]bool // 1-based Store call numbers that fail
	failAll   bool
	deleteErr error
}

func (f *flakyStore) Store(ctx context.Context, ns string, file storage.Upload) (string, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failAll || f.failCalls[f.calls]
	f.mu.Unlock()
	if fail {
		return "", errors.New("disk full")
	}
	return f.BlobStore.Store(ctx, ns, file)
}

func (f *flakyStore) Delete(ctx context.Context, p string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.BlobStore.Delete(ctx, p)
}

type fixture struct {
	db      *gorm.DB
	fs      afero.Fs
	local   *storage.LocalStore
	blobs   *flakyStore
	engine  *authz.Engine
	events  *recorder
	catalog service.CatalogService
	roles   service.RoleService
	users   service.UserService
	audit   service.AuditService

	superAdmin uint
	admin      uint
	plain      uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := dbtest.New(t)
	fs := afero.NewMemMapFs()
	local := storage.NewLocalStoreFs(fs, "http://cdn.test/storage/")
	blobs := &flakyStore{BlobStore: local, failCalls: map[int]bool{}}

	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewProductImageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	tx := repository.NewTransactionManager(db)

	engine := authz.NewEngine(roleRepo, nil, nil)
	events := &recorder{}

	f := &fixture{db: db, fs: fs, local: local, blobs: blobs, engine: engine, events: events}

	f.catalog = service.NewCatalogService(service.CatalogDeps{
		Categories: repository.NewCategoryRepository(db),
		Products:   repository.NewProductRepository(db),
		Images:     imageRepo,
		Audit:      auditRepo,
		Tx:         tx,
		Authz:      engine,
		Media:      service.NewMediaManager(blobs, imageRepo, nil, nil, 0),
		Events:     events,
	})
	f.roles = service.NewRoleService(roleRepo, auditRepo, tx, engine, engine, nil)
	f.users = service.NewUserService(service.UserDeps{
		Users:       userRepo,
		Roles:       roleRepo,
		Audit:       auditRepo,
		Tx:          tx,
		Authz:       engine,
		Permissions: engine,
		Tokens:      auth.NewTokenIssuer("test-secret", time.Hour),
		Hasher:      auth.BcryptHasher{Cost: 4},
	})
	f.audit = service.NewAuditService(auditRepo, engine)

	require.NoError(t, f.roles.SeedDefaults(ctx))
	f.superAdmin = f.mkUser(t, "root@example.com", model.RoleSuperAdmin)
	f.admin = f.mkUser(t, "admin@example.com", model.RoleAdmin)
	f.plain = f.mkUser(t, "user@example.com", model.RoleUser)
	return f
}

func (f *fixture) mkUser(t *testing.T, email, roleName string) uint {
	t.Helper()
	var role model.Role
	require.NoError(t, f.db.Where("name = ?", roleName).First(&role).Error)
	u := model.User{Name: email, Email: email, Password: "x", Roles: []model.Role{role}}
	require.NoError(t, f.db.Omit("Roles.*").Create(&u).Error)
	return u.ID
}

func (f *fixture) mkCategory(t *testing.T, name string) uint {
	t.Helper()
	c := model.Category{Name: name}
	require.NoError(t, f.db.Create(&c).Error)
	return c.ID
}

func (f *fixture) countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
