package cache

import (
	"log/slog"
	"time"
)

// ManagerConfig holds configuration for the cache manager.
type ManagerConfig struct {
	DeckConfig      DeckCacheConfig
	CleanupInterval time.Duration // How often to run cleanup (0 = disabled)
	Logger          *slog.Logger
}

// DefaultManagerConfig returns default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		DeckConfig:      DefaultDeckCacheConfig(),
		CleanupInterval: 1 * time.Minute,
		Logger:          slog.Default(),
	}
}

// Manager owns the deck cache and its background cleanup.
type Manager struct {
	Decks       *DeckCache
	config      ManagerConfig
	stopCleanup chan struct{}
}

// NewManager creates a new cache manager.
func NewManager(config ManagerConfig) *Manager {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	m := &Manager{
		Decks:       NewDeckCache(config.DeckConfig),
		config:      config,
		stopCleanup: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go m.cleanupLoop()
	}

	return m
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop stops the background cleanup goroutine.
func (m *Manager) Stop() {
	close(m.stopCleanup)
}

// Cleanup removes expired entries.
func (m *Manager) Cleanup() int {
	total := m.Decks.Cleanup()
	if total > 0 {
		m.config.Logger.Debug("cache cleanup completed",
			slog.Int("expired_entries", total),
		)
	}
	return total
}

// Stats holds cache statistics.
type Stats struct {
	Size    int
	Metrics Metrics
}

// Stats returns current deck cache statistics.
func (m *Manager) Stats() Stats {
	return Stats{
		Size:    m.Decks.Size(),
		Metrics: m.Decks.Metrics(),
	}
}

// LogStats logs cache statistics.
func (m *Manager) LogStats() {
	stats := m.Stats()
	m.config.Logger.Info("deck cache statistics",
		slog.Int("size", stats.Size),
		slog.Int64("hits", stats.Metrics.Hits),
		slog.Int64("misses", stats.Metrics.Misses),
		slog.Float64("hit_rate_pct", stats.Metrics.HitRate()),
		slog.Int64("evictions", stats.Metrics.Evictions),
	)
}
