package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"assetledger/internal/core"
)

type markerBody struct {
	AssetID           int64     `json:"asset_id" binding:"required,gt=0"`
	ReminderMilestone time.Time `json:"reminder_milestone" binding:"required"`
}

func (b markerBody) request() core.MarkerRequest {
	return core.MarkerRequest{AssetID: b.AssetID, ReminderMilestone: b.ReminderMilestone}
}

func (h *handler) createMarker(c *gin.Context) {
	var body markerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	m, _, err := h.svc.CreateNotificationMarker(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *handler) updateMarker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body markerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	m, _, err := h.svc.UpdateNotificationMarker(c.Request.Context(), id, body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handler) deleteMarker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteNotificationMarker(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getMarker(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.GetNotificationMarker(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *handler) listMarkers(c *gin.Context) {
	ms, err := h.svc.ListNotificationMarkers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}
