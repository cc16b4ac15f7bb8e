package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"TraffixSync/internal/config"
	"TraffixSync/internal/model"
	"TraffixSync/internal/service"
)

// SyncHandler 手动触发同步与摄取的运维接口
type SyncHandler struct {
	syncService   *service.SyncService
	ingestService *service.IngestService
	cfg           *config.Config
	logger        *logrus.Logger
}

// NewSyncHandler 创建 SyncHandler
func NewSyncHandler(syncService *service.SyncService, ingestService *service.IngestService, cfg *config.Config, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService:   syncService,
		ingestService: ingestService,
		cfg:           cfg,
		logger:        logger,
	}
}

// SyncDatasetHandler 同步指定数据集到缓存
// POST /sync/dataset/:kind
func (h *SyncHandler) SyncDatasetHandler(c *gin.Context) {
	ds, ok := h.dataset(c)
	if !ok {
		return
	}

	if err := h.syncService.SyncDataset(c.Request.Context(), ds); err != nil {
		h.logger.Errorf("同步%s失败: %v", ds.Label, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s同步成功", ds.Label)})
}

// SyncAllHandler 同步全部数据集与最近动态
// POST /sync/run
func (h *SyncHandler) SyncAllHandler(c *gin.Context) {
	h.syncService.SyncAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "同步完成"})
}

// IngestDatasetHandler 摄取指定数据集。
// 摄取按名称和 issue ID 双重去重，重跑是幂等的，也可用于补发失败的回执。
// POST /ingest/dataset/:kind
func (h *SyncHandler) IngestDatasetHandler(c *gin.Context) {
	ds, ok := h.dataset(c)
	if !ok {
		return
	}

	report, err := h.ingestService.IngestDataset(c.Request.Context(), ds)
	if err != nil {
		h.logger.Errorf("摄取%s失败: %v", ds.Label, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *SyncHandler) dataset(c *gin.Context) (model.DatasetSpec, bool) {
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
