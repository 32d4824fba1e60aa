package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assetledger/internal/core"
	"assetledger/pkg/domain"
)

type notificationBody struct {
	UserID  int64                 `json:"user_id" binding:"required,gt=0"`
	AssetID int64                 `json:"asset_id"`
	Title   string                `json:"title" binding:"required"`
	Message string                `json:"message" binding:"required"`
	Type    core.NotificationType `json:"type"`
	Read    bool                  `json:"is_read"`
	LinkURL *string               `json:"link_url"`
}

func (b notificationBody) request() core.NotificationRequest {
	kind := b.Type
	if kind == "" {
		kind = domain.NotificationInfo
	}
	return core.NotificationRequest{
		UserID:  b.UserID,
		AssetID: optionalID(b.AssetID),
		Title:   b.Title,
		Message: b.Message,
		Type:    kind,
		Read:    b.Read,
		LinkURL: b.LinkURL,
	}
}

type readBody struct {
	Read *bool `json:"is_read"`
}

func (h *handler) createNotification(c *gin.Context) {
	var body notificationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	n, _, err := h.svc.CreateNotification(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *handler) updateNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body notificationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	n, _, err := h.svc.UpdateNotification(c.Request.Context(), id, body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// markNotificationRead defaults to marking as read when the body is empty.
func (h *handler) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	read := true
	if c.Request.ContentLength > 0 {
		var body readBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		if body.Read != nil {
			read = *body.Read
		}
	}
	n, _, err := h.svc.MarkNotificationRead(c.Request.Context(), id, read)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *handler) deleteNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteNotification(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.GetNotification(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *handler) listNotifications(c *gin.Context) {
	ns, err := h.svc.ListNotifications(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

func (h *handler) listUserNotifications(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ns, err := h.svc.ListNotificationsForUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}
