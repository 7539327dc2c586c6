package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/yle-dl-go/internal/app"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/infrastructure"
	"github.com/yourusername/yle-dl-go/internal/resolver"
	"go.uber.org/zap"
)

// DownloadHandler handles the download queue and the history
type DownloadHandler struct {
	queueMgr    *app.QueueManager
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(queueMgr *app.QueueManager, downloadMgr *app.DownloadManager, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		queueMgr:    queueMgr,
		downloadMgr: downloadMgr,
		logger:      logger,
	}
}

// AddDownloadRequest represents a request to add a download
type AddDownloadRequest struct {
	URL        string   `json:"url" binding:"required"`
	Protocols  []string `json:"protocols,omitempty"`
	SubLang    string   `json:"sublang,omitempty"`
	HardSubs   bool     `json:"hardsubs,omitempty"`
	MaxBitrate string   `json:"max_bitrate,omitempty"`
	Latest     bool     `json:"latest,omitempty"`
}

// AddDownload handles POST /api/v1/downloads
func (h *DownloadHandler) AddDownload(c *gin.Context) {
	var req AddDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters := h.downloadMgr.DefaultFilters()
	if req.SubLang != "" {
		filters.SubLang = req.SubLang
	}
	if req.MaxBitrate != "" {
		bitrate, err := domain.ParseBitrate(req.MaxBitrate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters.MaxBitrate = bitrate
	}
	filters.HardSubs = req.HardSubs
	filters.LatestOnly = req.Latest

	job, err := h.queueMgr.AddDownload(app.Request{
		URL:       req.URL,
		Filters:   filters,
		Protocols: req.Protocols,
	})
	switch {
	case errors.Is(err, resolver.ErrUnsupportedURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, app.ErrQueueFull), errors.Is(err, app.ErrQueueStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to add download", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	job, ok := h.queueMgr.GetJob(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, h.queueMgr.ListJobs())
}

// ListHistory handles GET /api/v1/history
func (h *DownloadHandler) ListHistory(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = n
	}

	var (
		records []*domain.Download
		err     error
	)
	if url := c.Query("url"); url != "" {
		records, err = h.downloadMgr.HistoryForURL(url)
	} else {
		records, err = h.downloadMgr.History(limit)
	}
	if err != nil {
		h.historyError(c, err)
		return
	}
	if records == nil {
		records = []*domain.Download{}
	}

	c.JSON(http.StatusOK, records)
}

// GetHistory handles GET /api/v1/history/:id
func (h *DownloadHandler) GetHistory(c *gin.Context) {
	record, err := h.downloadMgr.HistoryEntry(c.Param("id"))
	if err != nil {
		h.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetStats handles GET /api/v1/history/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloadMgr.HistoryStats()
	if err != nil {
		h.historyError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *DownloadHandler) historyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrHistoryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, infrastructure.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "history record not found"})
	default:
		h.logger.Error("Failed to read history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
