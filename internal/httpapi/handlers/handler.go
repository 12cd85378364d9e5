package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/ai"
	"github.com/rgs-labs/rgsai/internal/config"
)

var errAPIKeyMissing = errors.New("provider api key is not configured")

type Handler struct {
	Cfg    config.Config
	Logger *zap.Logger

	// Provider overrides construction-from-config when set (tests).
	Provider ai.Provider

	registry *ai.Registry

	mu    sync.Mutex
	built ai.Provider
}

func NewHandler(cfg config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
		if cfg.GeminiAPIKey == "" {
			return nil, errAPIKeyMissing
		}
		return ai.NewGeminiProvider(ctx, cfg.GeminiAPIKey, model)
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})

	return &Handler{Cfg: cfg, Logger: logger, registry: reg}
}

// providerFor resolves the collaborator lazily so a missing credential is
// a request-time failure, not a startup one.
func (h *Handler) providerFor(ctx context.Context) (ai.Provider, error) {
	if h.Provider != nil {
		return h.Provider, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.built != nil {
		return h.built, nil
	}

	name := h.Cfg.AIProvider
	if name == "" {
		name = "gemini"
	}
	model := h.Cfg.GeminiModel
	if name == "ollama" {
		model = h.Cfg.OllamaModel
	}

	p, err := h.registry.Get(ctx, name, model)
	if err != nil {
		return nil, err
	}
	h.built = p
	return p, nil
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
