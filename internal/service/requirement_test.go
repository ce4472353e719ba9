package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/storage/storagetest"
	"github.com/sekkot/portal/internal/validation"
)

func TestSubmitRequirement(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStorage("http://files.test")
	f := newFixture(t, store)
	admin := f.user(t, adminEmail)
	customer := f.user(t, "buyer@example.com")

	req, err := f.requirements.Submit(ctx, customer, "Stainless flanges, 200 units", upload(t, "drawing.pdf", pdf))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if n := f.count(t, "requirements"); n != 1 {
		t.Fatalf("requirements = %d, want 1", n)
	}
	if !store.Exists(req.FilePath) {
		t.Fatalf("uploaded object %q missing", req.FilePath)
	}

	stored, err := f.requirements.ByID(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.FilePath != req.FilePath || stored.Status != model.RequirementStatusNew || stored.Email != customer.Email {
		t.Fatalf("stored requirement = %+v", stored)
	}

	notes, err := f.notifications.Notifications(ctx, admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Type != model.NotificationTypeNewRequirement {
		t.Fatalf("admin notifications = %+v, want one new_requirement", notes)
	}
	if n := f.count(t, "notifications"); n != 1 {
		t.Fatalf("notifications = %d, want 1", n)
	}
}

func TestSubmitRequirementUploadFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingStorage{storagetest.NewMemoryStorage("http://files.test")})
	f.user(t, adminEmail)
	customer := f.user(t, "buyer@example.com")

	_, err := f.requirements.Submit(ctx, customer, "Bolts", upload(t, "drawing.pdf", pdf))

	var remoteErr *service.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.Op != "upload file" {
		t.Fatalf("err = %v, want upload RemoteError", err)
	}
	if n := f.count(t, "requirements"); n != 0 {
		t.Fatalf("requirements = %d after failed upload, want 0", n)
	}
	if n := f.count(t, "notifications"); n != 0 {
		t.Fatalf("notifications = %d after failed upload, want 0", n)
	}
}

func TestSubmitRequirementInsertFailureRemovesUpload(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStorage("http://files.test")
	f := newFixture(t, store)

	// Not a stored user, so the foreign key rejects the insert.
	ghost := &model.User{ID: "missing-user", Email: "ghost@example.com"}

	_, err := f.requirements.Submit(ctx, ghost, "Gaskets", upload(t, "drawing.pdf", pdf))

	var remoteErr *service.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.Op != "submit requirement" {
		t.Fatalf("err = %v, want submit RemoteError", err)
	}
	if store.Len() != 0 {
		t.Fatalf("objects left in storage = %d, want 0", store.Len())
	}
}

func TestSubmitRequirementValidation(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStorage("http://files.test")
	f := newFixture(t, store)
	customer := f.user(t, "buyer@example.com")

	_, err := f.requirements.Submit(ctx, customer, "", nil)

	var errs validation.Errors
	if !errors.As(err, &errs) || !errs.Has(validation.FieldDescription) || !errs.Has(validation.FieldFile) {
		t.Fatalf("err = %v, want description and file errors", err)
	}
	if store.Len() != 0 || f.count(t, "requirements") != 0 {
		t.Fatal("invalid submission touched storage or the database")
	}
}

func TestUpdateStatusNotifiesSubmitter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))
	f.user(t, adminEmail)
	customer := f.user(t, "buyer@example.com")

	req, err := f.requirements.Submit(ctx, customer, "Brackets", upload(t, "drawing.pdf", pdf))
	if err != nil {
		t.Fatal(err)
	}

	if err := f.requirements.UpdateStatus(ctx, req.ID, "shipped"); !errors.Is(err, service.ErrInvalidStatus) {
		t.Fatalf("invalid status: err = %v", err)
	}

	if err := f.requirements.UpdateStatus(ctx, req.ID, model.RequirementStatusCompleted); err != nil {
		t.Fatal(err)
	}

	all, err := f.requirements.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Status != model.RequirementStatusCompleted {
		t.Fatalf("requirements after update = %+v", all)
	}

	notes, err := f.notifications.Notifications(ctx, customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Title != "Requirement Completed" {
		t.Fatalf("customer notifications = %+v", notes)
	}

	if err := f.requirements.Respond(ctx, req.ID, "  "); err == nil {
		t.Fatal("empty response should fail validation")
	}
	if err := f.requirements.Respond(ctx, req.ID, "Samples ship Monday"); err != nil {
		t.Fatal(err)
	}
	notes, _ = f.notifications.Notifications(ctx, customer.ID)
	if len(notes) != 2 || notes[0].Message != "Samples ship Monday" {
		t.Fatalf("customer notifications after respond = %+v", notes)
	}
}

func TestDownloadURL(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStorage("http://files.test")
	f := newFixture(t, store)
	customer := f.user(t, "buyer@example.com")

	req, err := f.requirements.Submit(ctx, customer, "Pins", upload(t, "drawing.pdf", pdf))
	if err != nil {
		t.Fatal(err)
	}

	url, err := f.requirements.DownloadURL(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if want := "http://files.test/" + req.FilePath + "?expires="; len(url) <= len(want) || url[:len(want)] != want {
		t.Fatalf("download url = %q", url)
	}
}
