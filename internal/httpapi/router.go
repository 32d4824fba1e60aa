// Package httpapi exposes the service over HTTP with gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assetledger/internal/archive"
	"assetledger/internal/assistant"
	"assetledger/internal/core"
)

type RouterConfig struct {
	Service   *core.Service
	Assistant *assistant.Service // optional
	Exporter  *archive.Exporter  // optional
	Logger    core.Logger
	Gatherer  prometheus.Gatherer // optional; /metrics is not mounted without it
}

type handler struct {
	svc       *core.Service
	assistant *assistant.Service
	exporter  *archive.Exporter
	log       core.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	h := &handler{svc: cfg.Service, assistant: cfg.Assistant, exporter: cfg.Exporter, log: cfg.Logger}
	if h.log == nil {
		h.log = nopLogger{}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(h.log))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.POST("/assets", h.createAsset)
		api.GET("/assets", h.listAssets)
		api.GET("/assets/history", h.listHistory)
		api.GET("/assets/:id", h.getAsset)
		api.PUT("/assets/:id", h.updateAsset)
		api.DELETE("/assets/:id", h.deleteAsset)
		api.POST("/assets/:id/assign", h.assignAsset)
		api.POST("/assets/:id/revoke", h.revokeAsset)
		api.POST("/assets/:id/evaluate", h.evaluateAsset)
		if h.exporter != nil {
			api.POST("/assets/history/export", h.exportHistory)
			api.GET("/assets/history/exports", h.listExports)
		}

		api.POST("/departments", h.createDepartment)
		api.GET("/departments", h.listDepartments)
		api.GET("/departments/:id", h.getDepartment)
		api.PUT("/departments/:id", h.updateDepartment)
		api.DELETE("/departments/:id", h.deleteDepartment)
		api.GET("/departments/:id/users", h.listDepartmentUsers)

		api.POST("/users", h.createUser)
		api.GET("/users", h.listUsers)
		api.GET("/users/:id", h.getUser)
		api.PUT("/users/:id", h.updateUser)
		api.DELETE("/users/:id", h.deleteUser)
		api.GET("/users/:id/notifications", h.listUserNotifications)

		api.POST("/asset-types", h.createAssetType)
		api.GET("/asset-types", h.listAssetTypes)
		api.GET("/asset-types/:id", h.getAssetType)
		api.PUT("/asset-types/:id", h.updateAssetType)
		api.DELETE("/asset-types/:id", h.deleteAssetType)

		api.POST("/notifications", h.createNotification)
		api.GET("/notifications", h.listNotifications)
		api.GET("/notifications/:id", h.getNotification)
		api.PUT("/notifications/:id", h.updateNotification)
		api.PATCH("/notifications/:id/read", h.markNotificationRead)
		api.DELETE("/notifications/:id", h.deleteNotification)

		api.POST("/notification-markers", h.createMarker)
		api.GET("/notification-markers", h.listMarkers)
		api.GET("/notification-markers/:id", h.getMarker)
		api.PUT("/notification-markers/:id", h.updateMarker)
		api.DELETE("/notification-markers/:id", h.deleteMarker)

		if h.assistant != nil {
			api.POST("/chatbot", h.chat)
			api.GET("/chatbot/history/:userId", h.chatHistory)
		}
	}
	return r
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
