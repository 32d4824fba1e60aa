package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"assetledger/internal/core"
)

type assetBody struct {
	Code         string              `json:"code" binding:"required"`
	Name         string              `json:"name" binding:"required"`
	TypeID       int64               `json:"type_id" binding:"required"`
	AssignedTo   int64               `json:"assigned_to"`
	PurchaseDate *time.Time          `json:"purchase_date"`
	Value        decimal.Decimal     `json:"value"`
	Status       core.AssetStatus    `json:"status" binding:"required"`
	Condition    core.AssetCondition `json:"condition" binding:"required"`
	Description  string              `json:"description"`
	CreatedBy    int64               `json:"created_by"`
}

func (b assetBody) request() (core.AssetRequest, error) {
	if !b.Value.IsPositive() {
		return core.AssetRequest{}, errors.New("value must be greater than 0")
	}
	return core.AssetRequest{
		Code:         b.Code,
		Name:         b.Name,
		TypeID:       b.TypeID,
		OwnerID:      optionalID(b.AssignedTo),
		PurchaseDate: b.PurchaseDate,
		Value:        b.Value,
		Status:       b.Status,
		Condition:    b.Condition,
		Description:  b.Description,
		CreatedBy:    optionalID(b.CreatedBy),
	}, nil
}

type assignBody struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

type evaluateBody struct {
	PerformedBy int64               `json:"performed_by" binding:"required,gt=0"`
	Condition   core.AssetCondition `json:"condition" binding:"required"`
	Notes       *string             `json:"notes"`
}

type historyView struct {
	ID             int64             `json:"id"`
	AssetID        int64             `json:"asset_id"`
	Action         string            `json:"action"`
	PerformedBy    *int64            `json:"performed_by"`
	PerformedAt    string            `json:"performed_at"`
	Details        string            `json:"details"`
	Notes          *string           `json:"notes"`
	PreviousStatus *core.AssetStatus `json:"previous_status"`
	NewStatus      *core.AssetStatus `json:"new_status"`
}

func historyOf(rows []core.AssetHistory) []historyView {
	out := make([]historyView, 0, len(rows))
	for _, r := range rows {
		out = append(out, historyView{
			ID:             r.ID,
			AssetID:        r.AssetID,
			Action:         string(r.Action),
			PerformedBy:    r.PerformedBy,
			PerformedAt:    r.PerformedAt.UTC().Format(time.RFC3339Nano),
			Details:        r.Details,
			Notes:          r.Notes,
			PreviousStatus: r.PreviousStatus,
			NewStatus:      r.NewStatus,
		})
	}
	return out
}

func (h *handler) createAsset(c *gin.Context) {
	var body assetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req, err := body.request()
	if err != nil {
		badRequest(c, err)
		return
	}
	asset, _, err := h.svc.CreateAsset(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func (h *handler) updateAsset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body assetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req, err := body.request()
	if err != nil {
		badRequest(c, err)
		return
	}
	asset, _, err := h.svc.UpdateAsset(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (h *handler) deleteAsset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteAsset(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted successfully"})
}

func (h *handler) getAsset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.GetAsset(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) listAssets(c *gin.Context) {
	views, err := h.svc.ListAssets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *handler) assignAsset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body assignBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	asset, _, err := h.svc.AssignAsset(c.Request.Context(), id, body.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (h *handler) revokeAsset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	asset, _, err := h.svc.RevokeAsset(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (h *handler) evaluateAsset(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body evaluateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	req := core.EvaluateRequest{PerformedBy: body.PerformedBy, Condition: body.Condition, Notes: body.Notes}
	asset, _, err := h.svc.EvaluateAsset(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func (h *handler) listHistory(c *gin.Context) {
	rows, err := h.svc.ListHistory(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, historyOf(rows))
}

func (h *handler) exportHistory(c *gin.Context) {
	export, err := h.exporter.ExportHistory(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, export)
}

func (h *handler) listExports(c *gin.Context) {
	infos, err := h.exporter.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}
