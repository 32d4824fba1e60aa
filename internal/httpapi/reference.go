package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assetledger/internal/core"
	"assetledger/pkg/domain"
)

type departmentBody struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ManagerID   int64  `json:"manager_id"`
	Active      *bool  `json:"is_active"`
}

func (b departmentBody) request() core.DepartmentRequest {
	active := true
	if b.Active != nil {
		active = *b.Active
	}
	return core.DepartmentRequest{
		Name:        b.Name,
		Description: b.Description,
		ManagerID:   optionalID(b.ManagerID),
		Active:      active,
	}
}

type userBody struct {
	Name         string    `json:"name" binding:"required"`
	Email        string    `json:"email" binding:"required,email"`
	DepartmentID int64     `json:"department_id" binding:"required,gt=0"`
	Role         core.Role `json:"role"`
	Active       *bool     `json:"active"`
}

func (b userBody) request() core.UserRequest {
	role := b.Role
	if role == "" {
		role = domain.RoleStaff
	}
	active := true
	if b.Active != nil {
		active = *b.Active
	}
	return core.UserRequest{Name: b.Name, Email: b.Email, DepartmentID: b.DepartmentID, Role: role, Active: active}
}

type assetTypeBody struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *handler) createDepartment(c *gin.Context) {
	var body departmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	dept, _, err := h.svc.CreateDepartment(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dept)
}

func (h *handler) updateDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body departmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	dept, _, err := h.svc.UpdateDepartment(c.Request.Context(), id, body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dept)
}

func (h *handler) deleteDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteDepartment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getDepartment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dept, err := h.svc.GetDepartment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dept)
}

func (h *handler) listDepartments(c *gin.Context) {
	depts, err := h.svc.ListDepartments(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, depts)
}

func (h *handler) listDepartmentUsers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	users, err := h.svc.ListUsersByDepartment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) createUser(c *gin.Context) {
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	user, _, err := h.svc.CreateUser(c.Request.Context(), body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *handler) updateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	user, _, err := h.svc.UpdateUser(c.Request.Context(), id, body.request())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handler) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *handler) createAssetType(c *gin.Context) {
	var body assetTypeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	at, _, err := h.svc.CreateAssetType(c.Request.Context(), core.AssetTypeRequest(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, at)
}

func (h *handler) updateAssetType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body assetTypeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	at, _, err := h.svc.UpdateAssetType(c.Request.Context(), id, core.AssetTypeRequest(body))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, at)
}

func (h *handler) deleteAssetType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteAssetType(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getAssetType(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	at, err := h.svc.GetAssetType(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, at)
}

func (h *handler) listAssetTypes(c *gin.Context) {
	types, err := h.svc.ListAssetTypes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}
