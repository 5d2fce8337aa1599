package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func (h *Handler) Health(c *gin.Context) {
	info := gin.H{"status": "ok", "time": time.Now().UTC()}
	status := http.StatusOK

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.Log.WithError(err).Warn("health: database unreachable")
		info["status"] = "degraded"
		info["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		info["database"] = "ok"
	}

	if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
		info["cpu_percent"] = usage[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info["mem_used_percent"] = vm.UsedPercent
	}
	c.JSON(status, info)
}
