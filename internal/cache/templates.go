package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/sheets"
)

// TemplateCache keeps downloaded templates and collapses concurrent
// downloads of the same template into one.
type TemplateCache struct {
	next  sheets.TemplateStore
	cache *LRUCache[[]byte]
	group singleflight.Group
}

var _ sheets.TemplateStore = (*TemplateCache)(nil)

func NewTemplateCache(next sheets.TemplateStore, maxSize int, ttl time.Duration) *TemplateCache {
	return &TemplateCache{next: next, cache: NewLRUCache[[]byte](maxSize, ttl)}
}

func templateKey(app int, recordNumber string) string {
	return fmt.Sprintf("%d/%s", app, recordNumber)
}

// FetchTemplate returns a copy of the cached template, loading it on miss.
func (t *TemplateCache) FetchTemplate(ctx context.Context, app int, recordNumber string) ([]byte, error) {
	key := templateKey(app, recordNumber)
	if data, ok := t.cache.Get(key); ok {
		return clone(data), nil
	}
	v, err, shared := t.group.Do(key, func() (any, error) {
		data, err := t.next.FetchTemplate(ctx, app, recordNumber)
		if err != nil {
			return nil, err
		}
		t.cache.Set(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Template loaded",
		log.FieldComponent, log.ComponentCache, "key", key, "shared", shared)
	return clone(v.([]byte)), nil
}

// Invalidate forgets one template.
func (t *TemplateCache) Invalidate(app int, recordNumber string) {
	t.cache.Delete(templateKey(app, recordNumber))
}

// Cleaner exposes the underlying cache for Manager registration.
func (t *TemplateCache) Cleaner() Cleaner { return t.cache }

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
