package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/db/dbtest"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/realtime"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/storage"
	"github.com/sekkot/portal/internal/storage/storagetest"
)

const adminEmail = "admin@example.com"

type fixture struct {
	db            *sqlx.DB
	storage       storage.Storage
	broker        *realtime.MemoryBroker
	notifications *service.NotificationService
	requirements  *service.RequirementService
	products      *service.ProductService
	catalog       *service.CatalogService
}

func newFixture(t *testing.T, store storage.Storage) *fixture {
	t.Helper()

	database := dbtest.New(t)
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	email := service.NewEmailService("", "noreply@example.com", "http://localhost", "Test", true)
	files := service.NewFileService(store, time.Hour)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(database), broker)
	productRepository := repository.NewProductRepository(database)
	requirementRepository := repository.NewRequirementRepository(database)

	return &fixture{
		db:            database,
		storage:       store,
		broker:        broker,
		notifications: notifications,
		requirements: service.NewRequirementService(
			requirementRepository,
			repository.NewUserRepository(database),
			files,
			notifications,
			email,
			adminEmail,
		),
		products: service.NewProductService(productRepository, files, email, adminEmail),
		catalog:  service.NewCatalogService(productRepository, requirementRepository),
	}
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()

	now := time.Now().UTC()
	u := &model.User{ID: uuid.New().String(), Email: email, EmailConfirmedAt: &now, CreatedAt: now}
	if err := repository.NewUserRepository(f.db).Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()

	var n int
	if err := f.db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatal(err)
	}
	return n
}

func upload(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["file"][0]
}

var pdf = []byte("%PDF-1.7\n1 0 obj\n<< >>\nendobj\n")

// failingStorage rejects every write.
type failingStorage struct {
	*storagetest.MemoryStorage
}

func (failingStorage) Save(ctx context.Context, path string, body io.Reader, contentType string) error {
	return errors.New("bucket unreachable")
}
