package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/tmduggan/gordon/internal/gymlog"
	"github.com/tmduggan/gordon/internal/telemetry/tracing"
)

const (
	megabyte             = 1024 * 1024
	librarySnapshotKey   = "library::snapshot"
	librarySnapshotChunk = "library::snapshot::%d"
)

type librarySource interface {
	Snapshot(ctx context.Context) (*gymlog.Catalog, error)
}

// CachedLibrary is a read-through freecache in front of the library table.
// freecache rejects entries above 1/1024 of its size, so the serialized
// snapshot is stored in chunks.
type CachedLibrary struct {
	source    librarySource
	cache     *freecache.Cache
	ttl       time.Duration
	chunkSize int
}

func NewCachedLibrary(source librarySource, cacheSizeMB int, ttl time.Duration) *CachedLibrary {
	cacheSize := cacheSizeMB * megabyte
	return &CachedLibrary{
		source:    source,
		cache:     freecache.NewCache(cacheSize),
		ttl:       ttl,
		chunkSize: cacheSize / 2048,
	}
}

func (c *CachedLibrary) Snapshot(ctx context.Context) (_ *gymlog.Catalog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "cachedLibrary.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if catalog, ok := c.fromCache(); ok {
		log.Traceln("library snapshot found in cache")
		return catalog, nil
	}

	catalog, err := c.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store(catalog); err != nil {
		log.Errorf("failed to cache library snapshot: %s", err)
	} else {
		log.Debugf("library snapshot cached, %d exercises", catalog.Len())
	}
	return catalog, nil
}

// Invalidate drops the cached snapshot so the next read hits the database.
func (c *CachedLibrary) Invalidate() {
	c.cache.Del([]byte(librarySnapshotKey))
}

func (c *CachedLibrary) fromCache() (*gymlog.Catalog, bool) {
	countBytes, err := c.cache.Get([]byte(librarySnapshotKey))
	if err != nil {
		return nil, false
	}
	count, err := strconv.Atoi(string(countBytes))
	if err != nil {
		return nil, false
	}

	var buf bytes.Buffer
	for i := 0; i < count; i++ {
		chunk, err := c.cache.Get([]byte(fmt.Sprintf(librarySnapshotChunk, i)))
		if err != nil {
			return nil, false
		}
		buf.Write(chunk)
	}

	var exercises []gymlog.ExerciseMeta
	if err := json.Unmarshal(buf.Bytes(), &exercises); err != nil {
		log.Errorf("failed to unmarshal cached library snapshot: %s", err)
		return nil, false
	}
	return gymlog.NewCatalog(exercises), true
}

func (c *CachedLibrary) store(catalog *gymlog.Catalog) error {
	data, err := json.Marshal(catalog.Exercises())
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}

	expire := int(c.ttl.Seconds())
	count := 0
	for start := 0; start < len(data); start += c.chunkSize {
		end := min(start+c.chunkSize, len(data))
		if err := c.cache.Set([]byte(fmt.Sprintf(librarySnapshotChunk, count)), data[start:end], expire); err != nil {
			return fmt.Errorf("set chunk %d: %w", count, err)
		}
		count++
	}
	return c.cache.Set([]byte(librarySnapshotKey), []byte(strconv.Itoa(count)), expire)
}
