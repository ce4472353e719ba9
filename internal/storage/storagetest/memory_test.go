package storagetest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sekkot/portal/internal/storage"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage("http://files.test")

	if err := m.Save(ctx, "requirements/a.pdf", strings.NewReader("%PDF"), "application/pdf"); err != nil {
		t.Fatal(err)
	}
	if !m.Exists("requirements/a.pdf") || m.Len() != 1 {
		t.Fatal("object not stored")
	}

	url, err := m.SignedURL(ctx, "requirements/a.pdf", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "http://files.test/requirements/a.pdf?expires=") {
		t.Fatalf("signed url = %q", url)
	}

	if err := m.Delete(ctx, "requirements/a.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(ctx, "requirements/a.pdf"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("second delete: %v, want ErrObjectNotFound", err)
	}
	if _, err := m.SignedURL(ctx, "requirements/a.pdf", time.Minute); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("signed url of missing object: %v", err)
	}
}
