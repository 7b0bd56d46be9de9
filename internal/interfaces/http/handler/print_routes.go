package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/printdesk/backend/internal/interfaces/http/router"
)

// PrintRoutes creates the route group for print endpoints
func PrintRoutes(h *PrintHandler, stream *StreamHandler, mw ...gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("print", "/print")
	group.Use(mw...)

	group.POST("/jobs", h.SubmitJob)
	group.GET("/jobs", h.ListJobs)
	group.GET("/jobs/:id", h.GetJob)
	group.POST("/jobs/:id/cancel-polling", h.CancelPolling)
	group.GET("/requesters/:requester_id/jobs", h.ListRequesterJobs)
	group.GET("/me/jobs", h.ListMyJobs)
	group.GET("/devices", h.ListDevices)
	if stream != nil {
		group.GET("/stream", stream.Stream)
	}

	return group
}

// SystemRoutes creates the route group for system endpoints
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")
	group.GET("/info", h.GetSystemInfo)
	group.GET("/ping", h.Ping)
	return group
}
