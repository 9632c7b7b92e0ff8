package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/OpenMachineAIO/internal/aio"
	"github.com/KevinKickass/OpenMachineAIO/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WriteRequest mirrors the loose shape of the driver call: target may be
// null (all outputs), a channel name or a mask; value a number or a pair.
type WriteRequest struct {
	Target interface{} `json:"target"`
	Value  interface{} `json:"value"`
}

// GET /api/v1/aio
func (s *Server) getSnapshot(c *gin.Context) {
	m := s.lm.DeviceManager()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.CodeNotReady, "Board not ready", nil))
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

// GET /api/v1/aio/config
func (s *Server) getBoardConfig(c *gin.Context) {
	m := s.lm.DeviceManager()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.CodeNotReady, "Board not ready", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     m.Device().ID,
		"config": m.Device().Config,
	})
}

// POST /api/v1/aio/read
func (s *Server) readInputs(c *gin.Context) {
	m := s.lm.DeviceManager()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.CodeNotReady, "Board not ready", nil))
		return
	}

	values, err := m.Read(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"values": values})
}

// POST /api/v1/aio/write
func (s *Server) writeOutputs(c *gin.Context) {
	m := s.lm.DeviceManager()
	if m == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.CodeNotReady, "Board not ready", nil))
		return
	}

	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeBadRequest, "Invalid request body", err.Error()))
		return
	}

	target, err := aio.ParseTarget(req.Target)
	if err != nil {
		s.respondError(c, err)
		return
	}
	value, err := aio.ParseValue(req.Value)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := m.Write(c.Request.Context(), target, value); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"outputs": m.Snapshot().Outputs})
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, types.CodeInternal, "Internal error"
	switch {
	case errors.Is(err, aio.ErrRange):
		status, code, message = http.StatusBadRequest, types.CodeRange, "Value out of range"
	case errors.Is(err, aio.ErrShape):
		status, code, message = http.StatusBadRequest, types.CodeShape, "Invalid value shape"
	case errors.Is(err, aio.ErrTargetResolution):
		status, code, message = http.StatusNotFound, types.CodeTarget, "Unknown output channel"
	case errors.Is(err, aio.ErrBusPhase):
		status, code, message = http.StatusBadGateway, types.CodeBus, "Board communication failed"
	}

	if !types.IsClientError(code) {
		s.logger.Error("AIO request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, types.NewErrorResponse(code, message, err.Error()))
}
