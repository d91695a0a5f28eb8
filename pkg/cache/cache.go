// Package cache stores derived data that is expensive to rebuild.
//
// The map layout itself is never cached: positions depend on the live zoom
// and viewport and are recomputed on every pass. What is cached is the
// province atlas derived from the boundary GeoJSON (names, centres, bounds
// and crowding classes) and raw HTTP responses from remote data sources.
//
// Backends:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for multi-instance servers
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs.
const (
	// TTLAtlas covers derived province atlases. The key includes the
	// geometry hash, so a changed boundary file never hits a stale entry.
	TTLAtlas = 30 * 24 * time.Hour
	// TTLHTTP covers remote band and genre files.
	TTLHTTP = 24 * time.Hour
)

// AtlasKeyOpts are the inputs, besides the geometry itself, that change a
// derived atlas.
type AtlasKeyOpts struct {
	// Version is bumped whenever the derivation rules change.
	Version int `json:"v"`
}

// AtlasVersion is the current atlas derivation version.
const AtlasVersion = 2

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey is the key of a cached HTTP response.
	HTTPKey(namespace, key string) string
	// AtlasKey is the key of the atlas derived from a geometry file.
	AtlasKey(geometryHash string, opts AtlasKeyOpts) string
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey implements Keyer.
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// AtlasKey implements Keyer.
func (DefaultKeyer) AtlasKey(geometryHash string, opts AtlasKeyOpts) string {
	if opts.Version == 0 {
		opts.Version = AtlasVersion
	}
	return hashKey("atlas", geometryHash, opts)
}
