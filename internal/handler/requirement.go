package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
	"github.com/sekkot/portal/internal/validation"
)

type RequirementHandler struct {
	requirementService *service.RequirementService
}

func NewRequirementHandler(requirementService *service.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

func (h *RequirementHandler) SubmitPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.SubmitRequirement(pages.SubmitRequirementData{
		Submitted: r.URL.Query().Get("submitted") == "1",
	}))
}

// Submit accepts the requirement form. The attachment is uploaded before
// the requirement is recorded.
func (h *RequirementHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	description := r.FormValue("description")

	header, err := formFile(r, "file")
	if err != nil {
		slog.Warn("failed to read upload", "error", err, "user_id", user.ID)
	}

	_, err = h.requirementService.Submit(r.Context(), user, description, header)

	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.SubmitRequirement(pages.SubmitRequirementData{
			Description: description,
			Errors:      errs,
		}))
	case err != nil:
		slog.Error("requirement submission failed", "error", err, "user_id", user.ID)
		ui.RenderStatus(w, r, http.StatusBadGateway, pages.SubmitRequirement(pages.SubmitRequirementData{
			Description: description,
			Error:       failMessage(err) + ". Please try again.",
		}))
	default:
		http.Redirect(w, r, "/submit-requirement?submitted=1", http.StatusSeeOther)
	}
}

// formFile returns the named upload, or nil when the field is empty.
func formFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	_ = file.Close()
	return header, nil
}
