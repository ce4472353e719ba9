package pages

import (
	"strconv"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/validation"
)

type NotificationsData struct {
	Items  []*model.Notification
	Unread int
	OOB    bool
}

type DashboardData struct {
	Notifications NotificationsData
	Requirements  []*model.Requirement
}

type SubmitRequirementData struct {
	Description string
	Errors      validation.Errors
	Error       string
	Submitted   bool
}

func maxUploadMB() string {
	return strconv.FormatInt(validation.RequirementConstraints.MaxSize>>20, 10)
}

func notificationClass(n *model.Notification) string {
	if n.Read {
		return "flex items-start justify-between gap-4 px-4 py-3"
	}
	return "flex items-start justify-between gap-4 px-4 py-3 bg-blue-50"
}
