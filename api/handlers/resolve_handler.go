package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/yourusername/yle-dl-go/internal/app"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/resolver"
	"go.uber.org/zap"
)

// ResolveHandler resolves page URLs into stream metadata
type ResolveHandler struct {
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(downloadMgr *app.DownloadManager, logger *zap.Logger) *ResolveHandler {
	return &ResolveHandler{
		downloadMgr: downloadMgr,
		logger:      logger,
	}
}

// ResolveResponse is the body of a resolve response
type ResolveResponse struct {
	Status string             `json:"status"`
	Clips  []app.ResolvedClip `json:"clips"`
	Error  string             `json:"error,omitempty"`
}

// Resolve handles GET /api/v1/resolve
func (h *ResolveHandler) Resolve(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	filters, err := filtersFromQuery(c, h.downloadMgr.DefaultFilters())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clips, result, err := h.downloadMgr.Resolve(c.Request.Context(), app.Request{
		URL:       url,
		Operation: domain.OperationResolveOnly,
		Filters:   filters,
		Protocols: splitList(c.Query("protocol")),
	})
	if err != nil {
		if errors.Is(err, resolver.ErrUnsupportedURL) {
			c.JSON(http.StatusUnprocessableEntity, ResolveResponse{Status: domain.ResultFailed.String(), Clips: []app.ResolvedClip{}, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to resolve URL", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if clips == nil {
		clips = []app.ResolvedClip{}
	}
	response := ResolveResponse{Status: result.String(), Clips: clips}
	if result == domain.ResultFailed {
		response.Error = "no streams could be resolved"
		c.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// filtersFromQuery overrides the default filters with the sublang,
// hardsubs, maxbitrate and latest query parameters
func filtersFromQuery(c *gin.Context, filters domain.StreamFilters) (domain.StreamFilters, error) {
	if sublang := c.Query("sublang"); sublang != "" {
		filters.SubLang = sublang
	}
	if v := c.Query("hardsubs"); v != "" {
		hardsubs, err := strconv.ParseBool(v)
		if err != nil {
			return filters, errors.New("hardsubs must be a boolean")
		}
		filters.HardSubs = hardsubs
	}
	if v := c.Query("latest"); v != "" {
		latest, err := strconv.ParseBool(v)
		if err != nil {
			return filters, errors.New("latest must be a boolean")
		}
		filters.LatestOnly = latest
	}
	if v := c.Query("maxbitrate"); v != "" {
		bitrate, err := domain.ParseBitrate(v)
		if err != nil {
			return filters, err
		}
		filters.MaxBitrate = bitrate
	}
	return filters, nil
}

// splitList splits a comma separated parameter, dropping empty items
func splitList(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
