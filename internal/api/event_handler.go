package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/interfaces"
	"TraffixSync/internal/model"
	"TraffixSync/internal/service"
)

// EventHandler 提供给前端的事件查询接口（只读缓存，从不碰数据集文件）
type EventHandler struct {
	cache  interfaces.CacheStore
	cfg    *config.Config
	logger *logrus.Logger
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(cache interfaces.CacheStore, cfg *config.Config, logger *logrus.Logger) *EventHandler {
	return &EventHandler{cache: cache, cfg: cfg, logger: logger}
}

// ListEvents 事件分页列表
// GET /api/events/:kind?page=1&page_size=20
func (h *EventHandler) ListEvents(c *gin.Context) {
	ds, ok := h.dataset(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, ok := h.cachedList(c, ds.CacheKey())
	if !ok {
		return
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"items":     items[start:end],
	})
}

// UpcomingEvents 即将到来的事件（Top-50 视图，由同步服务预先算好）
// GET /api/events/:kind/upcoming
func (h *EventHandler) UpcomingEvents(c *gin.Context) {
	ds, ok := h.dataset(c)
	if !ok {
		return
	}

	items, ok := h.cachedList(c, ds.TopKey())
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

// Activity 最近动态
// GET /api/activity?limit=10
func (h *EventHandler) Activity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	raw, err := h.cache.Get(c.Request.Context(), service.ActivityKey)
	if err != nil {
		h.logger.WithError(err).Error("Activity failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var issues []model.RawIssue
	if raw != nil {
		if err := json.Unmarshal(raw, &issues); err != nil {
			h.logger.WithError(err).Error("Activity decode failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	items := service.BuildActivity(issues, limit, time.Now(), h.logger)
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

// Health 健康检查（缓存探活）
// GET /api/health
func (h *EventHandler) Health(c *gin.Context) {
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("缓存探活失败")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "cache connection error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// dataset 解析 :kind 路径参数并定位数据集
func (h *EventHandler) dataset(c *gin.Context) (model.DatasetSpec, bool) {
	kind, err := model.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return model.DatasetSpec{}, false
	}
	ds, ok := h.cfg.DatasetFor(kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return model.DatasetSpec{}, false
	}
	return ds, true
}

// cachedList 读取缓存里的 JSON 列表，键不存在返回空列表
func (h *EventHandler) cachedList(c *gin.Context, key string) ([]json.RawMessage, bool) {
	raw, err := h.cache.Get(c.Request.Context(), key)
	if err != nil {
		h.logger.WithError(err).Errorf("读取缓存键 %s 失败", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	items := []json.RawMessage{}
	if raw != nil {
		if err := json.Unmarshal(raw, &items); err != nil {
			h.logger.WithError(err).Errorf("解析缓存键 %s 失败", key)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return nil, false
		}
	}
	return items, true
}
