package cache

import (
	"log/slog"
	"time"

	"github.com/arjuns-ti/slides-mcp-server/internal/deck"
)

// deckEntry pairs a normalized deck with the Drive modification time it was
// built from.
type deckEntry struct {
	deck         *deck.Deck
	modifiedTime string
}

// DeckCacheConfig holds configuration for the deck cache.
type DeckCacheConfig struct {
	MaxEntries int
	TTL        time.Duration
	Logger     *slog.Logger
}

// DefaultDeckCacheConfig returns default configuration.
func DefaultDeckCacheConfig() DeckCacheConfig {
	return DeckCacheConfig{
		MaxEntries: 100,
		TTL:        5 * time.Minute,
		Logger:     slog.Default(),
	}
}

// DeckCache caches normalized decks keyed by Drive file ID. Entries carry
// the file's modifiedTime: a hit is only valid when the caller's fresh Drive
// lookup reports the same modification time, so a changed document never
// serves a stale deck no matter how young the entry is.
type DeckCache struct {
	lru    *LRU[*deckEntry]
	config DeckCacheConfig
}

// NewDeckCache creates a new deck cache.
func NewDeckCache(config DeckCacheConfig) *DeckCache {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = 100
	}

	return &DeckCache{
		lru: NewLRU[*deckEntry](LRUConfig{
			MaxEntries: config.MaxEntries,
			DefaultTTL: config.TTL,
			Logger:     config.Logger,
		}),
		config: config,
	}
}

// Get returns the cached deck for the file if its recorded modifiedTime
// matches the one just observed in Drive. A mismatch invalidates the entry.
func (c *DeckCache) Get(fileID, modifiedTime string) (*deck.Deck, bool) {
	e, ok := c.lru.Get(fileID)
	if !ok {
		return nil, false
	}
	if e.modifiedTime != modifiedTime {
		c.lru.Delete(fileID)
		c.config.Logger.Debug("deck cache entry outdated",
			slog.String("file_id", fileID),
			slog.String("cached_modified_time", e.modifiedTime),
			slog.String("current_modified_time", modifiedTime),
		)
		return nil, false
	}
	return e.deck, true
}

// Set stores a normalized deck under the file ID with the modifiedTime it
// was built from.
func (c *DeckCache) Set(fileID, modifiedTime string, d *deck.Deck) {
	c.lru.Set(fileID, &deckEntry{deck: d, modifiedTime: modifiedTime})
}

// Invalidate removes the entry for a file.
func (c *DeckCache) Invalidate(fileID string) {
	c.lru.Delete(fileID)
}

// Clear removes all entries.
func (c *DeckCache) Clear() {
	c.lru.Clear()
}

// Size returns the number of cached decks.
func (c *DeckCache) Size() int {
	return c.lru.Size()
}

// Metrics returns cache metrics.
func (c *DeckCache) Metrics() Metrics {
	return c.lru.Metrics()
}

// Cleanup removes expired entries.
func (c *DeckCache) Cleanup() int {
	return c.lru.Cleanup()
}
