package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type DashboardHandler struct {
	notificationService *service.NotificationService
	requirementService  *service.RequirementService
	upgrader            websocket.Upgrader
}

func NewDashboardHandler(notificationService *service.NotificationService, requirementService *service.RequirementService) *DashboardHandler {
	return &DashboardHandler{
		notificationService: notificationService,
		requirementService:  requirementService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *DashboardHandler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	notifications, err := h.notifications(r.Context(), user.ID)
	if err != nil {
		fail(w, r, err, "user_id", user.ID)
		return
	}

	reqs, err := h.requirementService.ForUser(r.Context(), user.ID)
	if err != nil {
		fail(w, r, err, "user_id", user.ID)
		return
	}

	ui.Render(w, r, pages.Dashboard(pages.DashboardData{
		Notifications: notifications,
		Requirements:  reqs,
	}))
}

// MarkRead flags one notification as read and re-renders the panel from
// the datastore.
func (h *DashboardHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	_, err := h.notificationService.MarkRead(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			notFound(w, r)
			return
		}
		toastError(w, r, err, "notification_id", id)
		return
	}

	notifications, err := h.notifications(r.Context(), user.ID)
	if err != nil {
		toastError(w, r, err, "user_id", user.ID)
		return
	}

	ui.Render(w, r, pages.Notifications(notifications))
}

func (h *DashboardHandler) notifications(ctx context.Context, userID string) (pages.NotificationsData, error) {
	items, err := h.notificationService.Notifications(ctx, userID)
	if err != nil {
		return pages.NotificationsData{}, err
	}

	unread, err := h.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		return pages.NotificationsData{}, err
	}
	return pages.NotificationsData{Items: items, Unread: unread}, nil
}

func countUnread(items []*model.Notification) int {
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return unread
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(messageType, data)
}

// NotificationsWS streams the notification panel to an open dashboard.
// Each new notification pushes a fresh panel as an htmx out-of-band swap.
// The subscription lives exactly as long as the connection.
func (h *DashboardHandler) NotificationsWS(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "user_id", user.ID)
		return
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := h.notificationService.OpenFeed(ctx, user.ID)
	if err != nil {
		slog.Error("failed to open notification feed", "error", err, "user_id", user.ID)
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "unavailable"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer func() {
		closeErr := feed.Close()
		if closeErr != nil {
			slog.Warn("failed to close notification feed", "error", closeErr, "user_id", user.ID)
		}
	}()

	conn := &wsConn{c: c}
	go readPump(c, cancel)
	go pingPump(ctx, conn, cancel)

	slog.Debug("notification stream opened", "user_id", user.ID)
	defer slog.Debug("notification stream closed", "user_id", user.ID)

	// Bring the panel up to date with anything that arrived between the
	// page load and the upgrade.
	items := feed.Items()
	if err := h.push(ctx, conn, pages.NotificationsData{Items: items, Unread: countUnread(items)}); err != nil {
		return
	}

	for {
		n, err := feed.Next(ctx)
		if err != nil {
			return
		}
		slog.Debug("pushing notification", "user_id", user.ID, "notification_id", n.ID)

		data, err := h.notifications(ctx, user.ID)
		if err != nil {
			slog.Error("failed to reload notifications", "error", err, "user_id", user.ID)
			continue
		}
		if err := h.push(ctx, conn, data); err != nil {
			return
		}
	}
}

func (h *DashboardHandler) push(ctx context.Context, conn *wsConn, data pages.NotificationsData) error {
	data.OOB = true

	var buf bytes.Buffer
	err := pages.Notifications(data).Render(ctx, &buf)
	if err != nil {
		slog.Error("failed to render notifications", "error", err)
		return err
	}
	return conn.write(websocket.TextMessage, buf.Bytes())
}

// readPump discards client messages and keeps the read deadline alive on
// pongs. It ends the stream when the client goes away.
func readPump(c *websocket.Conn, done context.CancelFunc) {
	defer done()

	c.SetReadLimit(4096)
	_ = c.SetReadDeadline(time.Now().Add(wsPongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, _, err := c.ReadMessage()
		if err != nil {
			return
		}
	}
}

func pingPump(ctx context.Context, conn *wsConn, done context.CancelFunc) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				done()
				return
			}
		}
	}
}
