package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/app"
	"github.com/yourusername/yle-dl-go/internal/domain"
)

// HealthHandler reports the state of the download queue and of the
// external downloaders
type HealthHandler struct {
	queueMgr    *app.QueueManager
	downloadMgr *app.DownloadManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queueMgr *app.QueueManager, downloadMgr *app.DownloadManager) *HealthHandler {
	return &HealthHandler{
		queueMgr:    queueMgr,
		downloadMgr: downloadMgr,
	}
}

// HealthResponse represents a health check response. Status is degraded
// when none of the external downloaders is installed, since only plain
// HTTP downloads can then succeed.
type HealthResponse struct {
	Status   string              `json:"status"`
	Version  string              `json:"version"`
	Backends []app.BackendStatus `json:"backends"`
	History  bool                `json:"history"`
	Queue    struct {
		Running bool `json:"running"`
	} `json:"queue"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:   "ok",
		Version:  domain.Version,
		Backends: h.downloadMgr.Backends(),
		History:  h.downloadMgr.HistoryEnabled(),
	}
	response.Queue.Running = h.queueMgr.IsRunning()

	if !lo.SomeBy(response.Backends, func(b app.BackendStatus) bool { return b.Available }) {
		response.Status = "degraded"
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.queueMgr.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "download queue not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
