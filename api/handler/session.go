package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/netsessionpro/netsessionpro/internal/database"
	"github.com/netsessionpro/netsessionpro/internal/model"
	"github.com/netsessionpro/netsessionpro/internal/service"
)

// SessionHandler 设备会话接口处理器
type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// BatchRequest 批量任务请求
type BatchRequest struct {
	Devices []service.DeviceRequest `json:"devices" binding:"required"`
}

// BatchCapture 批量采集接口
func (h *SessionHandler) BatchCapture(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}
	if len(req.Devices) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": "devices are required"})
		return
	}
	for i := range req.Devices {
		if len(req.Devices[i].Commands) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": "commands are required for capture"})
			return
		}
		// 采集接口不接受配置命令
		req.Devices[i].ConfigCommands = nil
	}

	outcomes := h.svc.RunBatch(c.Request.Context(), req.Devices)
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

// DeployConfig 配置下发接口
func (h *SessionHandler) DeployConfig(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}
	if len(req.Devices) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": "devices are required"})
		return
	}
	for _, d := range req.Devices {
		if len(d.ConfigCommands) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_PARAMS", "message": "config_commands are required for deploy"})
			return
		}
	}

	outcomes := h.svc.RunBatch(c.Request.Context(), req.Devices)
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

// ListRecords 运行记录查询接口
func (h *SessionHandler) ListRecords(c *gin.Context) {
	db := database.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "DB_UNAVAILABLE", "message": "database not initialized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := db.Order("created_at DESC").Limit(limit)
	if host := c.Query("host"); host != "" {
		query = query.Where("device_ip = ?", host)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var records []model.RunRecord
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "ERROR", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// Health 健康检查接口
func (h *SessionHandler) Health(c *gin.Context) {
	status := gin.H{
		"status":  "ok",
		"service": "netsessionpro",
	}
	if err := database.Health(); err != nil {
		status["database"] = err.Error()
	} else {
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
