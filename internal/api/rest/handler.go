package rest

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
	"github.com/feral-file/ff-transfer-indexer/internal/store"
)

const healthCheckTimeout = 2 * time.Second

// Handler defines the interface for ops handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// HealthCheck reports whether the database answers
	// GET /healthz
	HealthCheck(c *gin.Context)

	// Metrics serves the Prometheus registry
	// GET /metrics
	Metrics(c *gin.Context)

	// TriggerBlockProcessing queues one block for extraction and reconciliation
	// POST /v1/blocks/:number/process
	TriggerBlockProcessing(c *gin.Context)

	// TriggerOwnershipUpdate queues one token for ownership recomputation
	// POST /v1/tokens/:collection/:tokenId/ownership
	TriggerOwnershipUpdate(c *gin.Context)
}

// processBlockRequest is the optional body of TriggerBlockProcessing
type processBlockRequest struct {
	ShouldSkipProcessingTokens bool `json:"shouldSkipProcessingTokens"`
}

// triggerResponse acknowledges a queued command
type triggerResponse struct {
	Command messaging.Command `json:"command"`
	Payload interface{}       `json:"payload"`
}

type handler struct {
	store     store.Store
	publisher messaging.Publisher
	metrics   http.Handler
}

// NewHandler creates a new ops handler
func NewHandler(st store.Store, publisher messaging.Publisher) Handler {
	return &handler{
		store:     st,
		publisher: publisher,
		metrics:   promhttp.Handler(),
	}
}

// HealthCheck pings the database
func (h *handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondUnavailable(c, "Database unavailable", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Metrics serves the default Prometheus registry
func (h *handler) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// TriggerBlockProcessing publishes PROCESS_BLOCK for the block in the path
func (h *handler) TriggerBlockProcessing(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid block number", err.Error())
		return
	}

	var req processBlockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Invalid request body", err.Error())
			return
		}
	}

	payload := messaging.ProcessBlockPayload{
		BlockNumber:                number,
		ShouldSkipProcessingTokens: req.ShouldSkipProcessingTokens,
	}
	if err := h.publisher.Publish(c.Request.Context(), messaging.CommandProcessBlock, payload); err != nil {
		respondInternalError(c, err, "Failed to queue block", zap.Uint64("block_number", number))
		return
	}
	logger.InfoCtx(c.Request.Context(), "Queued block from ops request",
		zap.Uint64("block_number", number),
		zap.Bool("skip_tokens", req.ShouldSkipProcessingTokens),
		requestedBy(c),
	)

	c.JSON(http.StatusAccepted, triggerResponse{
		Command: messaging.CommandProcessBlock,
		Payload: payload,
	})
}

// TriggerOwnershipUpdate publishes UPDATE_TOKEN_OWNERSHIP for the token in the path
func (h *handler) TriggerOwnershipUpdate(c *gin.Context) {
	payload := messaging.UpdateTokenOwnershipPayload{
		CollectionAddress: c.Param("collection"),
		TokenID:           c.Param("tokenId"),
	}
	if err := payload.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	// The token id is a decimal uint256
	if _, ok := new(big.Int).SetString(payload.TokenID, 10); !ok {
		respondValidationError(c, "token id must be a decimal integer")
		return
	}

	key := payload.TokenKey()
	payload.CollectionAddress = key.CollectionAddress

	if err := h.publisher.Publish(c.Request.Context(), messaging.CommandUpdateTokenOwnership, payload); err != nil {
		respondInternalError(c, err, "Failed to queue ownership update", zap.String("token", key.String()))
		return
	}
	logger.InfoCtx(c.Request.Context(), "Queued ownership update from ops request",
		zap.String("token", key.String()),
		requestedBy(c),
	)

	c.JSON(http.StatusAccepted, triggerResponse{
		Command: messaging.CommandUpdateTokenOwnership,
		Payload: payload,
	})
}

// requestedBy names the authenticated caller for the audit log
func requestedBy(c *gin.Context) zap.Field {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return zap.Skip()
	}
	if p.Subject == "" {
		return zap.String("requested_by", p.AuthType)
	}
	return zap.String("requested_by", p.AuthType+":"+p.Subject)
}
