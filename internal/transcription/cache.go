package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/greekdrop/greekdrop/pkg/logger"
)

// Model is a loaded whisper model handle
type Model struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ModelLoader resolves and verifies a model by its size tag
type ModelLoader func(ctx context.Context, id string) (*Model, error)

// ModelCache keeps loaded model handles so repeated jobs skip the load step.
// The loader runs at most once per id; a loader error leaves no entry so the
// next call retries.
type ModelCache struct {
	mu     sync.RWMutex
	models map[string]*Model
	loader ModelLoader
	logger *logger.Logger
}

// NewModelCache creates a cache around the given loader
func NewModelCache(loader ModelLoader, log *logger.Logger) *ModelCache {
	return &ModelCache{
		models: make(map[string]*Model),
		loader: loader,
		logger: log.Named("model-cache"),
	}
}

// GetOrLoad returns the cached model for id, loading it on first use
func (c *ModelCache) GetOrLoad(ctx context.Context, id string) (*Model, error) {
	c.mu.RLock()
	m := c.models[id]
	c.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have loaded it between the two lock sections
	if m := c.models[id]; m != nil {
		return m, nil
	}

	start := time.Now()
	m, err := c.loader(ctx, id)
	if err != nil {
		return nil, err
	}
	c.models[id] = m

	c.logger.Info("Model loaded",
		logger.String("model", id),
		logger.String("path", m.Path),
		logger.Int64("size_bytes", m.Size),
		logger.Duration("elapsed", time.Since(start)))
	return m, nil
}

// Has reports whether id is currently cached
func (c *ModelCache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models[id] != nil
}

// Cached returns the ids of all cached models
func (c *ModelCache) Cached() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	return ids
}

// Clear drops all cached handles and returns how many were held
func (c *ModelCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.models)
	c.models = make(map[string]*Model)
	c.logger.Info("Model cache cleared", logger.Int("dropped", n))
	return n
}
