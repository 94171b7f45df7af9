// Package handler provides the HTTP handlers implementing the Loom provider
// plugin protocol.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loomhq/openai-plugin/internal/domain"
	"github.com/loomhq/openai-plugin/internal/security"
	"github.com/loomhq/openai-plugin/internal/upstream"
)

// DefaultProbeTimeout bounds the synthetic provider calls made by the
// initialize-time connectivity check and the health probe.
const DefaultProbeTimeout = 5 * time.Second

// PluginHandler implements the plugin protocol endpoints. It owns the
// runtime configuration store and builds a fresh upstream client per request
// from the current configuration snapshot.
type PluginHandler struct {
	store        *domain.ConfigStore
	logger       *slog.Logger
	probeTimeout time.Duration
}

// Option is a functional option for configuring PluginHandler.
type Option func(*PluginHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *PluginHandler) {
		h.logger = logger
	}
}

// WithProbeTimeout overrides the timeout of the connectivity and health
// probes. Used by tests to keep timeout paths fast.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(h *PluginHandler) {
		if timeout > 0 {
			h.probeTimeout = timeout
		}
	}
}

// NewPluginHandler creates a PluginHandler around a configuration store.
func NewPluginHandler(store *domain.ConfigStore, opts ...Option) *PluginHandler {
	h := &PluginHandler{
		store:        store,
		logger:       slog.Default(),
		probeTimeout: DefaultProbeTimeout,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// client builds an upstream client from a configuration snapshot.
func (h *PluginHandler) client(cfg domain.ProviderConfig, timeout time.Duration) *upstream.Client {
	return upstream.NewClient(cfg.APIKey,
		upstream.WithBaseURL(cfg.Endpoint),
		upstream.WithTimeout(timeout),
	)
}

// HandleMetadata handles GET /metadata.
// Returns the static plugin metadata document.
func (h *PluginHandler) HandleMetadata(c *gin.Context) {
	c.JSON(http.StatusOK, domain.PluginMetadata)
}

// HandleInitialize handles POST /initialize.
// Merges the supplied fields over the current configuration, then runs a
// best-effort connectivity check whose outcome is visible only in logs.
func (h *PluginHandler) HandleInitialize(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.sendError(c, http.StatusBadRequest,
			domain.NewPluginError(domain.ErrInvalidRequest, "invalid request body: "+err.Error()))
		return
	}

	if perr := h.store.Apply(fields); perr != nil {
		h.sendError(c, http.StatusBadRequest, perr)
		return
	}

	snap := h.store.Snapshot()
	h.logger.Info("plugin initialized",
		slog.String("endpoint", snap.Endpoint),
		slog.Duration("timeout", snap.Timeout),
		slog.String("key", security.MaskKey(snap.APIKey)),
	)

	// Non-fatal side check: a failing probe does not fail initialization.
	h.verifyConnection(c.Request.Context(), snap)

	c.JSON(http.StatusOK, gin.H{})
}

// verifyConnection pings the provider's model listing with a short timeout.
// Any failure is logged and swallowed.
func (h *PluginHandler) verifyConnection(ctx context.Context, cfg domain.ProviderConfig) {
	ctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	resp, err := h.client(cfg, h.probeTimeout).ListModels(ctx)
	switch {
	case err != nil:
		h.logger.Warn("could not verify provider connection", slog.String("error", err.Error()))
	case resp.Status != http.StatusOK:
		h.logger.Warn("provider returned non-200 during verification", slog.Int("status", resp.Status))
	default:
		h.logger.Debug("provider connection verified", slog.Duration("latency", resp.Latency))
	}
}

// HandleHealth handles GET /health.
// Every outcome, including infrastructure failure, is a 200 response; an
// unhealthy plugin is reported in the body, never as an HTTP error.
func (h *PluginHandler) HandleHealth(c *gin.Context) {
	start := time.Now()

	if !h.store.Initialized() {
		c.JSON(http.StatusOK, domain.HealthReport{
			Healthy:   false,
			Message:   "Not initialized",
			LatencyMS: 0,
			Timestamp: time.Now(),
		})
		return
	}

	snap := h.store.Snapshot()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.probeTimeout)
	defer cancel()

	resp, err := h.client(snap, h.probeTimeout).ListModels(ctx)
	latency := time.Since(start).Milliseconds()
	observeUpstream("health", time.Since(start))

	report := domain.HealthReport{
		LatencyMS: latency,
		Timestamp: time.Now(),
	}

	switch {
	case err != nil && upstream.IsTimeout(err):
		report.Message = "Health check timeout"
	case err != nil:
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		report.Message = err.Error()
	case resp.Status == http.StatusOK:
		report.Healthy = true
		report.Message = "OK"
		report.Details = map[string]interface{}{
			"provider_status":  "connected",
			"models_available": len(domain.Models),
		}
	default:
		report.Message = fmt.Sprintf("Provider returned status %d", resp.Status)
	}

	c.JSON(http.StatusOK, report)
}

// HandleChatCompletion handles POST /chat/completions.
// Validation happens locally; the body is then relayed to the provider
// byte-for-byte using the current configuration snapshot. Deliberately no
// initialization gate here: an uninitialized plugin forwards with an empty
// credential and surfaces the provider's rejection.
func (h *PluginHandler) HandleChatCompletion(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendError(c, http.StatusInternalServerError,
			domain.NewPluginError(domain.ErrInternal, "failed to read request body"))
		return
	}

	var probe domain.CompletionProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		h.sendError(c, http.StatusBadRequest,
			domain.NewPluginError(domain.ErrInvalidRequest, "invalid request body: "+err.Error()))
		return
	}

	if perr := domain.ValidateCompletion(probe); perr != nil {
		h.sendError(c, http.StatusBadRequest, perr)
		return
	}

	snap := h.store.Snapshot()

	h.logger.Debug("forwarding completion request",
		slog.String("model", probe.Model),
		slog.String("key", security.MaskKey(snap.APIKey)),
	)

	resp, err := h.client(snap, snap.Timeout).ChatCompletion(c.Request.Context(), body)
	if err != nil {
		if upstream.IsTimeout(err) {
			h.logger.Error("completion request timeout", slog.String("model", probe.Model))
			h.sendError(c, http.StatusGatewayTimeout,
				domain.NewPluginError(domain.ErrTimeout, "Request timeout"))
			return
		}
		h.logger.Error("completion request failed", slog.String("error", err.Error()))
		h.sendError(c, http.StatusInternalServerError,
			domain.NewPluginError(domain.ErrInternal, err.Error()))
		return
	}

	observeUpstream("chat_completion", resp.Latency)

	if resp.Status != http.StatusOK {
		perr := domain.Classify(resp.Status, resp.Body)
		perr.Details = map[string]interface{}{
			"status_code": resp.Status,
			"latency_ms":  resp.Latency.Milliseconds(),
		}
		h.logger.Error("completion failed",
			slog.String("code", string(perr.Code)),
			slog.Int("status", resp.Status),
		)
		h.sendError(c, resp.Status, perr)
		return
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		h.logger.Error("malformed provider response", slog.String("error", err.Error()))
		h.sendError(c, http.StatusInternalServerError,
			domain.NewPluginError(domain.ErrInternal, "malformed provider response"))
		return
	}

	h.logger.Info("completion successful",
		slog.String("model", probe.Model),
		slog.Int64("latency_ms", resp.Latency.Milliseconds()),
	)

	c.JSON(http.StatusOK, domain.AugmentCost(result))
}

// HandleModels handles GET /models.
// Returns the static model catalog.
func (h *PluginHandler) HandleModels(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Models)
}

// HandleCleanup handles POST /cleanup.
// The plugin holds no per-call resources, so there is nothing to release.
func (h *PluginHandler) HandleCleanup(c *gin.Context) {
	h.logger.Info("cleanup requested")
	c.JSON(http.StatusOK, gin.H{})
}

// sendError writes a PluginError body with the given HTTP status.
func (h *PluginHandler) sendError(c *gin.Context, status int, perr *domain.PluginError) {
	c.JSON(status, perr)
}
