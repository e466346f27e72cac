package driverator

import (
	"context"
	"fmt"
	"time"
)

// Cache is the persistent metadata store consulted before any live fetch.
// Get treats an entry older than ttl as absent; expired rows are overwritten
// on the next Put rather than swept eagerly. Implementations must be safe for
// concurrent use; last writer wins on the same key.
type Cache interface {
	Get(ctx context.Context, key string, ttl time.Duration) (*FileMetadata, error)
	Put(ctx context.Context, key string, meta *FileMetadata) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// cacheKey derives the identity key for a handle's cache entry. The key is a
// pure function of the construction parameters, so a handle built twice with
// the same parameters shares an entry, and a handle that starts pending keeps
// writing to the same key once upload resolves a file id.
func cacheKey(account string, cfg *Config) string {
	if cfg.FileID != "" {
		return fmt.Sprintf("%s|id:%s", account, cfg.FileID)
	}
	folder := cfg.FolderID
	if folder == "" {
		folder = cfg.FolderName
	}
	return fmt.Sprintf("%s|name:%s|folder:%s", account, cfg.FileName, folder)
}
