// Package lineage lists a module's version history and caches fetched
// version bodies locally. Archived versions are immutable, so a cache hit
// never needs revalidation; bodies are stored zstd-compressed.
package lineage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"lmc/internal/identity"
	"lmc/internal/portal"
)

// Gateway is the slice of the portal the lineage service consumes.
type Gateway interface {
	FetchLineageVersions(ctx context.Context, mt identity.ModuleType, lineageID int) ([]portal.LineageVersion, error)
	FetchLineageVersion(ctx context.Context, mt identity.ModuleType, lineageID, version int) (string, error)
}

// Cache stores version bodies under dir, one zstd file per version.
type Cache struct {
	dir string
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(portalID string, mt identity.ModuleType, lineageID, version int) string {
	return filepath.Join(c.dir, portalID, string(mt), fmt.Sprintf("%d", lineageID), fmt.Sprintf("v%d.zst", version))
}

// Get returns a cached version body, or false on a miss.
func (c *Cache) Get(portalID string, mt identity.ModuleType, lineageID, version int) (string, bool) {
	data, err := os.ReadFile(c.path(portalID, mt, lineageID, version))
	if err != nil {
		return "", false
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return "", false
	}
	defer dec.Close()
	body, err := dec.DecodeAll(data, nil)
	if err != nil {
		return "", false
	}
	return string(body), true
}

// Put stores a version body.
func (c *Cache) Put(portalID string, mt identity.ModuleType, lineageID, version int, body string) error {
	path := c.path(portalID, mt, lineageID, version)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	compressed := enc.EncodeAll([]byte(body), nil)
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close compressor: %w", err)
	}
	if err := os.WriteFile(path, compressed, 0600); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Service lists lineage versions and resolves version bodies through the
// cache.
type Service struct {
	gw     Gateway
	cache  *Cache
	logger *slog.Logger
}

// NewService creates a lineage service. cache may be nil to disable caching.
func NewService(gw Gateway, cache *Cache, logger *slog.Logger) *Service {
	return &Service{gw: gw, cache: cache, logger: logger}
}

// Versions lists the ordered version history of a lineage, newest first.
func (s *Service) Versions(ctx context.Context, mt identity.ModuleType, lineageID int) ([]portal.LineageVersion, error) {
	return s.gw.FetchLineageVersions(ctx, mt, lineageID)
}

// Body returns one archived version's script body, served from the cache
// when possible.
func (s *Service) Body(ctx context.Context, portalID string, mt identity.ModuleType, lineageID, version int) (string, error) {
	if s.cache != nil {
		if body, ok := s.cache.Get(portalID, mt, lineageID, version); ok {
			return body, nil
		}
	}
	body, err := s.gw.FetchLineageVersion(ctx, mt, lineageID, version)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if err := s.cache.Put(portalID, mt, lineageID, version, body); err != nil {
			s.logger.Warn("Failed to cache lineage version", "lineage", lineageID, "version", version, "error", err)
		}
	}
	return body, nil
}
