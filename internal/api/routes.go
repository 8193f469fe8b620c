package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/datalog"
	"github.com/nxtd-project/nxtd/internal/util"
)

// handlePing is a liveness probe.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleInfo returns the brick's identity and firmware versions.
func (s *Server) handleInfo(c *gin.Context) {
	info, err := s.brick.GetDeviceInfo()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	fw, err := s.brick.GetFirmwareVersion()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": info.Name,
		"bluetooth_addr": fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
			info.BtAddr[0], info.BtAddr[1], info.BtAddr[2],
			info.BtAddr[3], info.BtAddr[4], info.BtAddr[5]),
		"free_flash":       info.FreeFlash,
		"protocol_version": fmt.Sprintf("%d.%d", fw.Protocol[0], fw.Protocol[1]),
		"firmware_version": fmt.Sprintf("%d.%d", fw.Firmware[0], fw.Firmware[1]),
	})
}

// handleBattery returns the current battery voltage.
func (s *Server) handleBattery(c *gin.Context) {
	mv, err := s.brick.GetBatteryLevel()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"millivolts": mv})
}

// handleSensors reads all four input ports.
func (s *Server) handleSensors(c *gin.Context) {
	readings := make([]gin.H, 0, 4)
	for port := brick.In1; port <= brick.In4; port++ {
		vals, err := s.brick.GetInputValues(port)
		if err != nil {
			readings = append(readings, gin.H{
				"port":  int(port) + 1,
				"error": err.Error(),
			})
			continue
		}
		readings = append(readings, gin.H{
			"port":    int(port) + 1,
			"valid":   vals.Valid,
			"type":    uint8(vals.SensorType),
			"raw":     vals.Raw,
			"scaled":  vals.Scaled,
			"display": vals.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sensors": readings})
}

// handleFiles lists the files stored on the brick.
func (s *Server) handleFiles(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*.*")
	files, err := s.brick.ListFiles(pattern)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(files))
	for _, f := range files {
		out = append(out, gin.H{"name": f.Name, "size": f.Len})
	}
	c.JSON(http.StatusOK, gin.H{
		"files": out,
		"total": len(out),
	})
}

// handleHostCPU returns current host CPU usage.
func (s *Server) handleHostCPU(c *gin.Context) {
	usage, err := util.GetCPUUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cpu_percent": usage})
}

// handleHostMemory returns current host memory usage.
func (s *Server) handleHostMemory(c *gin.Context) {
	mem, err := util.GetMemoryUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_mb":     mem.Total,
		"used_mb":      mem.Used,
		"available_mb": mem.Available,
		"used_percent": mem.UsedPercent,
	})
}

// handleRecentSamples returns recorded telemetry samples, newest first.
func (s *Server) handleRecentSamples(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "datalog is disabled"})
		return
	}

	kind := c.DefaultQuery("kind", datalog.KindBattery)
	if kind != datalog.KindBattery && kind != datalog.KindSensor {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sample kind"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	samples, err := s.store.RecentSamples(kind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"samples": samples,
		"count":   len(samples),
	})
}

// handleRecentFiles returns recorded file transfers, newest first.
func (s *Server) handleRecentFiles(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "datalog is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	files, err := s.store.RecentFiles(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}
