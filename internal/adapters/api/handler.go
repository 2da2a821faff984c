package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/bnema/macaron-cli/internal/application"
	"github.com/bnema/macaron-cli/internal/domain"
	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

// Pool is the part of the pool manager the HTTP surface needs.
type Pool interface {
	Refresh(ctx context.Context) (application.PoolSnapshot, error)
	Snapshot() application.PoolSnapshot
	ConsumeOnceSnapshot(ctx context.Context, chargeKey string) (bool, application.PoolSnapshot, error)
	RestoreIfNeededSnapshot(ctx context.Context, force bool) (bool, application.PoolSnapshot, error)
	RecoveryMessage() string
	RecoveryAlert() (domain.Alert, bool)
	ShouldShowRecoveryMessage() bool
	MarkRecoveryMessageShown(ctx context.Context) error
	Subscribe() (<-chan application.PoolSnapshot, func())
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	pool   Pool
	logger *log.Logger
}

func NewHandler(pool Pool, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{pool: pool, logger: logger}
}

type consumeResponse struct {
	Consumed bool                     `json:"consumed"`
	Pool     application.PoolSnapshot `json:"pool"`
}

type restoreResponse struct {
	Restored bool                     `json:"restored"`
	Pool     application.PoolSnapshot `json:"pool"`
}

type messageResponse struct {
	Message string        `json:"message"`
	Show    bool          `json:"show"`
	Alert   *domain.Alert `json:"alert,omitempty"`
}

// GetPool handles GET /api/pool.
func (h *Handler) GetPool(c *gin.Context) {
	snapshot, err := h.pool.Refresh(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Consume handles POST /api/pool/consume.
func (h *Handler) Consume(c *gin.Context) {
	consumed, snapshot, err := h.pool.ConsumeOnceSnapshot(c.Request.Context(), c.GetHeader(idempotencyHeader))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, consumeResponse{Consumed: consumed, Pool: snapshot})
}

// Restore handles POST /api/pool/restore?force=.
func (h *Handler) Restore(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid force parameter"})
			return
		}
		force = parsed
	}

	restored, snapshot, err := h.pool.RestoreIfNeededSnapshot(c.Request.Context(), force)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, restoreResponse{Restored: restored, Pool: snapshot})
}

// GetMessage handles GET /api/pool/message.
func (h *Handler) GetMessage(c *gin.Context) {
	if _, err := h.pool.Refresh(c.Request.Context()); err != nil {
		h.abortWithError(c, err)
		return
	}

	resp := messageResponse{
		Message: h.pool.RecoveryMessage(),
		Show:    h.pool.ShouldShowRecoveryMessage(),
	}
	if alert, ok := h.pool.RecoveryAlert(); ok {
		resp.Alert = &alert
	}

	c.JSON(http.StatusOK, resp)
}

// AckMessage handles POST /api/pool/message/ack.
func (h *Handler) AckMessage(c *gin.Context) {
	if err := h.pool.MarkRecoveryMessageShown(c.Request.Context()); err != nil {
		h.abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Events handles GET /api/pool/events as a Server-Sent Events stream. The
// current snapshot is sent first, then one event per pool mutation.
func (h *Handler) Events(c *gin.Context) {
	events, cancel := h.pool.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("pool", h.pool.Snapshot())
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("pool", snapshot)
			c.Writer.Flush()
		}
	}
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPersistence):
		h.logger.Printf("pool request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "pool storage unavailable"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
	case errors.Is(err, application.ErrNoChargeLedger):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "idempotency keys are not supported"})
	default:
		h.logger.Printf("pool request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
