package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkotelnikov/txgate/internal/logging"
	"github.com/dkotelnikov/txgate/internal/storage"
)

type HealthHandler struct {
	lg   *logging.ZapLogger
	strg *storage.Storage
}

func NewHealthHandler(strg *storage.Storage, lg *logging.ZapLogger) *HealthHandler {
	return &HealthHandler{lg: lg, strg: strg}
}

func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.strg.Ping(ctx); err != nil {
		h.lg.ErrorCtx(ctx, "health_handler: storage probe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "UNHEALTHY", "current_time": time.Now().UTC()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "HEALTHY", "current_time": time.Now().UTC()})
}
