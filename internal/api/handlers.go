package api

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ducminhle1904/whale-tracker/internal/orchestrator"
	"github.com/ducminhle1904/whale-tracker/internal/position"
	"github.com/ducminhle1904/whale-tracker/internal/whale"
	"github.com/gin-gonic/gin"
)

// handleSnapshot returns the full dashboard document
func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handlePortfolio(c *gin.Context) {
	successResponse(c, s.engine.Snapshot().Portfolio)
}

func (s *Server) handleRisk(c *gin.Context) {
	snap := s.engine.Snapshot()
	successResponse(c, gin.H{
		"status": snap.RiskStatus,
		"state":  snap.Risk,
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	successResponse(c, s.engine.Snapshot().OpenPositions)
}

func (s *Server) handleClosedPositions(c *gin.Context) {
	successResponse(c, s.engine.Snapshot().RecentClosed)
}

// handleAlerts supports ?symbol= and ?limit= filters
func (s *Server) handleAlerts(c *gin.Context) {
	alerts := s.engine.Snapshot().Alerts

	if symbol := strings.ToUpper(c.Query("symbol")); symbol != "" {
		filtered := make([]whale.Alert, 0, len(alerts))
		for _, a := range alerts {
			if a.Symbol == symbol {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit < len(alerts) {
			alerts = alerts[:limit]
		}
	}
	successResponse(c, alerts)
}

func (s *Server) handleSignals(c *gin.Context) {
	successResponse(c, s.engine.Snapshot().Signals)
}

// handleControl queues pause, resume or refresh for the next cycle boundary
func (s *Server) handleControl(c *gin.Context) {
	cmd := orchestrator.Command(strings.ToLower(c.Param("command")))
	if !s.engine.Submit(cmd) {
		errorResponse(c, http.StatusBadRequest, "unknown command "+string(cmd))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"command": cmd,
		"message": "queued until the next cycle",
	})
}

func (s *Server) handleClosePosition(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	closed, err := s.engine.ClosePosition(c.Request.Context(), symbol)
	switch {
	case stderrors.Is(err, position.ErrPositionNotFound):
		errorResponse(c, http.StatusNotFound, "no open position for "+symbol)
	case err != nil:
		s.logger.LogError("close position", err)
		errorResponse(c, http.StatusInternalServerError, err.Error())
	default:
		successResponse(c, closed)
	}
}
