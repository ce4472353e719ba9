package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/validation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrInvalidStatus = errors.New("invalid requirement status")

type RequirementService struct {
	requirementRepository repository.RequirementRepository
	userRepository        repository.UserRepository
	fileService           *FileService
	notificationService   *NotificationService
	emailService          *EmailService
	adminEmail            string
}

func NewRequirementService(
	requirementRepository repository.RequirementRepository,
	userRepository repository.UserRepository,
	fileService *FileService,
	notificationService *NotificationService,
	emailService *EmailService,
	adminEmail string,
) *RequirementService {
	return &RequirementService{
		requirementRepository: requirementRepository,
		userRepository:        userRepository,
		fileService:           fileService,
		notificationService:   notificationService,
		emailService:          emailService,
		adminEmail:            adminEmail,
	}
}

// Submit uploads the attachment and only then records the requirement. If
// the record cannot be written the uploaded object is deleted again.
func (s *RequirementService) Submit(ctx context.Context, user *model.User, description string, header *multipart.FileHeader) (*model.Requirement, error) {
	if errs := validation.ValidateRequirement(description, header); len(errs) > 0 {
		return nil, errs
	}

	key, err := s.fileService.Put(ctx, FolderRequirements, header)
	if err != nil {
		return nil, remote("upload file", err)
	}

	req := &model.Requirement{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Description: strings.TrimSpace(description),
		FilePath:    key,
		FileName:    header.Filename,
		Status:      model.RequirementStatusNew,
		Email:       user.Email,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.requirementRepository.Create(ctx, req)
	if err != nil {
		s.fileService.Remove(ctx, key)
		return nil, remote("submit requirement", err)
	}

	slog.Info("requirement submitted", "requirement_id", req.ID, "user_id", user.ID, "path", key)
	s.notifyAdmin(ctx, req)
	return req, nil
}

// notifyAdmin tells the admin account about a new requirement. Failures are
// logged; the requirement already exists.
func (s *RequirementService) notifyAdmin(ctx context.Context, req *model.Requirement) {
	admin, err := s.userRepository.ByEmail(ctx, s.adminEmail)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		slog.Warn("admin account not registered, skipping notification", "admin_email", s.adminEmail)
	case err != nil:
		slog.Error("failed to look up admin account", "error", err)
	default:
		_, err = s.notificationService.Create(ctx, admin.ID,
			"New Requirement Submitted",
			fmt.Sprintf("A new requirement has been submitted by %s", req.Email),
			model.NotificationTypeNewRequirement,
		)
		if err != nil {
			slog.Error("failed to notify admin", "error", err, "requirement_id", req.ID)
		}
	}

	err = s.emailService.SendNewRequirementEmail(ctx, s.adminEmail, req.Email, req.FileName)
	if err != nil {
		slog.Warn("failed to email admin about requirement", "error", err, "requirement_id", req.ID)
	}
}

func (s *RequirementService) ForUser(ctx context.Context, userID string) ([]*model.Requirement, error) {
	reqs, err := s.requirementRepository.ByUser(ctx, userID)
	if err != nil {
		return nil, remote("load requirements", err)
	}
	return reqs, nil
}

func (s *RequirementService) All(ctx context.Context) ([]*model.Requirement, error) {
	reqs, err := s.requirementRepository.All(ctx)
	if err != nil {
		return nil, remote("load requirements", err)
	}
	return reqs, nil
}

func (s *RequirementService) ByID(ctx context.Context, id string) (*model.Requirement, error) {
	req, err := s.requirementRepository.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRequirementNotFound) {
			return nil, err
		}
		return nil, remote("load requirement", err)
	}
	return req, nil
}

// UpdateStatus changes the status and notifies the submitter.
func (s *RequirementService) UpdateStatus(ctx context.Context, id, status string) error {
	if !model.IsValidRequirementStatus(status) {
		return ErrInvalidStatus
	}

	req, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.requirementRepository.UpdateStatus(ctx, id, status)
	if err != nil {
		return remote("update requirement", err)
	}

	_, err = s.notificationService.Create(ctx, req.UserID,
		"Requirement "+cases.Title(language.English).String(status),
		"Your requirement has been marked as "+status,
		status,
	)
	if err != nil {
		slog.Error("failed to notify submitter", "error", err, "requirement_id", id)
	}

	slog.Info("requirement status updated", "requirement_id", id, "status", status)
	return nil
}

// Respond sends the submitter a free-text message about a requirement.
func (s *RequirementService) Respond(ctx context.Context, id, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return validation.Errors{validation.FieldMessage: "Response is required"}
	}

	req, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.notificationService.Create(ctx, req.UserID,
		"New response to your requirement",
		message,
		model.NotificationTypeResponse,
	)
	return err
}

// DownloadURL returns a temporary link to the attachment of req.
func (s *RequirementService) DownloadURL(ctx context.Context, req *model.Requirement) (string, error) {
	url, err := s.fileService.DownloadURL(ctx, req.FilePath)
	if err != nil {
		return "", remote("create download link", err)
	}
	return url, nil
}
