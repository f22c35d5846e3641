package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"TicketSync/internal/model"
	"TicketSync/internal/repository"
	"TicketSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TicketHandler 票务查询与导入接口
type TicketHandler struct {
	svc    *service.IngestService
	logger *logrus.Logger
}

func NewTicketHandler(svc *service.IngestService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, logger: logger}
}

// RegisterRoutes 注册票务相关路由
func RegisterRoutes(r gin.IRouter, h *TicketHandler) {
	g := r.Group("/api")
	g.GET("/platforms", h.ListPlatforms)
	g.POST("/search", h.SearchAll)
	g.GET("/tickets", h.ListTickets)

	p := g.Group("/platforms/:platform", h.requirePlatform)
	p.GET("/sources", h.GetSources)
	p.POST("/search", h.Search)
	p.POST("/import", h.Import)
	p.GET("/event", h.GetEventDetails)
	p.POST("/sweep", h.SweepStale)
	// 统计只读历史数据，平台停用后仍可查询
	g.GET("/platforms/:platform/stats", h.GetStatistics)
}

// searchBody 单平台查询/导入请求体
type searchBody struct {
	Identifiers []string      `json:"identifiers"`
	Filters     model.Filters `json:"filters"`
}

type batchBody struct {
	Requests []service.SearchRequest `json:"requests" binding:"required,min=1,dive"`
}

func platformParam(c *gin.Context) model.PlatformType {
	return model.PlatformType(c.Param("platform"))
}

// requirePlatform 平台未启用时返回404
func (h *TicketHandler) requirePlatform(c *gin.Context) {
	platform := platformParam(c)
	if !slices.Contains(h.svc.Platforms(), platform) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "平台未启用: " + string(platform)})
		return
	}
	c.Next()
}

// ListPlatforms GET /api/platforms
func (h *TicketHandler) ListPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.svc.Platforms()})
}

// GetSources GET /api/platforms/:platform/sources
func (h *TicketHandler) GetSources(c *gin.Context) {
	sources, err := h.svc.GetSupportedSources(platformParam(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"platform": platformParam(c), "sources": sources})
}

// Search POST /api/platforms/:platform/search
// 部分成功时仍返回200，失败单元见 errors
func (h *TicketHandler) Search(c *gin.Context) {
	var body searchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.svc.Search(c.Request.Context(), platformParam(c), body.Identifiers, body.Filters))
}

// SearchAll POST /api/search
func (h *TicketHandler) SearchAll(c *gin.Context) {
	var body batchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.svc.SearchAll(c.Request.Context(), body.Requests)})
}

// Import POST /api/platforms/:platform/import
func (h *TicketHandler) Import(c *gin.Context) {
	var body searchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := h.svc.Import(c.Request.Context(), platformParam(c), body.Identifiers, body.Filters)
	if !res.Success {
		h.logger.WithFields(logrus.Fields{"platform": res.Platform, "errors": len(res.Errors)}).Warn("导入失败")
	}
	c.JSON(http.StatusOK, res)
}

// GetEventDetails GET /api/platforms/:platform/event?url=...
func (h *TicketHandler) GetEventDetails(c *gin.Context) {
	ref := c.Query("url")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	f, err := h.svc.GetEventDetails(c.Request.Context(), platformParam(c), ref)
	if err != nil {
		h.logger.WithError(err).Error("GetEventDetails failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, f)
}

// GetStatistics GET /api/platforms/:platform/stats
func (h *TicketHandler) GetStatistics(c *gin.Context) {
	stats, err := h.svc.GetStatistics(c.Request.Context(), platformParam(c))
	if err != nil {
		h.logger.WithError(err).Error("GetStatistics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SweepStale POST /api/platforms/:platform/sweep
func (h *TicketHandler) SweepStale(c *gin.Context) {
	n, err := h.svc.SweepStale(c.Request.Context(), platformParam(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_stale": n})
}

// ListTickets 已入库票务列表
// GET /api/tickets?platform=club_store&availability=available&keyword=arsenal&from=2025-03-01&page=1&page_size=20
func (h *TicketHandler) ListTickets(c *gin.Context) {
	filter := repository.TicketFilter{
		Platform:     model.PlatformType(c.Query("platform")),
		Availability: model.AvailabilityStatus(c.Query("availability")),
		Keyword:      c.Query("keyword"),
		IncludeStale: c.Query("include_stale") == "true",
	}
	for param, dst := range map[string]**time.Time{"from": &filter.FromTime, "to": &filter.ToTime} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": param + " must be YYYY-MM-DD"})
			return
		}
		*dst = &t
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, total, err := h.svc.ListTickets(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("ListTickets failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "page": page, "list": list})
}
