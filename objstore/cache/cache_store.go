package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	explru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/cacheapi"
	cachewrap "github.com/xxxsen/dsdav/cacheapi/adaptor"
	"github.com/xxxsen/dsdav/objstore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultListSize = 4096
	defaultStatSize = 16384
	defaultListTTL  = 30 * time.Second
)

type cachedStore struct {
	c         *config
	impl      objstore.IObjectStore
	lists     cacheapi.IListableCache[string, []*objstore.Entry]
	stats     cacheapi.IListableCache[string, *objstore.Entry]
	bodies    cacheapi.ICache[string, []byte]
	bodyCache *ristretto.Cache[string, []byte]
	group     singleflight.Group
}

// New wraps impl with listing, stat and small body caches.
func New(impl objstore.IObjectStore, opts ...Option) (objstore.IObjectStore, error) {
	c := &config{
		listTTL:  defaultListTTL,
		listSize: defaultListSize,
		statSize: defaultStatSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	s := &cachedStore{
		c:     c,
		impl:  impl,
		lists: cachewrap.WrapExpirableLruCache(explru.NewLRU[string, []*objstore.Entry](c.listSize, nil, c.listTTL)),
		stats: cachewrap.WrapExpirableLruCache(explru.NewLRU[string, *objstore.Entry](c.statSize, nil, c.listTTL)),
	}
	if c.bodyCacheSize > 0 && c.bodyKeySizeLimit > 0 {
		bc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
			NumCounters: max(c.bodyCacheSize/c.bodyKeySizeLimit*10, 1000),
			MaxCost:     c.bodyCacheSize,
			BufferItems: 64,
			Cost: func(v []byte) int64 {
				return int64(len(v)) + 1
			},
		})
		if err != nil {
			return nil, fmt.Errorf("create body cache failed, err:%w", err)
		}
		s.bodyCache = bc
		s.bodies = cachewrap.WrapRistrttoCache(bc, c.listTTL)
	}
	return s, nil
}

func (s *cachedStore) Name() string {
	return s.impl.Name()
}

func (s *cachedStore) List(ctx context.Context, prefix string) ([]*objstore.Entry, error) {
	return cacheapi.Load(ctx, s.lists, prefix, func(ctx context.Context, miss []string) (map[string][]*objstore.Entry, error) {
		v, err, _ := s.group.Do("list:"+prefix, func() (interface{}, error) {
			return s.impl.List(ctx, prefix)
		})
		if err != nil {
			return nil, err
		}
		return map[string][]*objstore.Entry{prefix: v.([]*objstore.Entry)}, nil
	})
}

func (s *cachedStore) Stat(ctx context.Context, key string) (*objstore.Entry, error) {
	return cacheapi.Load(ctx, s.stats, key, func(ctx context.Context, miss []string) (map[string]*objstore.Entry, error) {
		v, err, _ := s.group.Do("stat:"+key, func() (interface{}, error) {
			return s.impl.Stat(ctx, key)
		})
		if err != nil {
			return nil, err
		}
		return map[string]*objstore.Entry{key: v.(*objstore.Entry)}, nil
	})
}

func (s *cachedStore) Read(ctx context.Context, key string) ([]byte, error) {
	if s.bodies == nil {
		return s.impl.Read(ctx, key)
	}
	if v, err := s.bodies.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err, _ := s.group.Do("read:"+key, func() (interface{}, error) {
		return s.impl.Read(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	raw := v.([]byte)
	if int64(len(raw)) <= s.c.bodyKeySizeLimit {
		_ = s.bodies.Set(ctx, key, raw)
	}
	return raw, nil
}

func (s *cachedStore) dropKey(ctx context.Context, key string) {
	_ = s.stats.Del(ctx, key)
	if s.bodies != nil {
		_ = s.bodies.Del(ctx, key)
	}
}

func (s *cachedStore) Write(ctx context.Context, key string, data []byte) error {
	defer s.dropKey(ctx, key)
	return s.impl.Write(ctx, key, data)
}

func (s *cachedStore) Delete(ctx context.Context, key string) error {
	defer s.dropKey(ctx, key)
	return s.impl.Delete(ctx, key)
}

func (s *cachedStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.impl.Exists(ctx, key)
}

func inScope(scope string, key string) bool {
	if len(scope) == 0 {
		return true
	}
	return key == scope || strings.HasPrefix(key, scope+"/")
}

func (s *cachedStore) Invalidate(ctx context.Context, scope string) {
	match := func(k string) bool {
		return inScope(scope, k)
	}
	lcnt, err := cacheapi.DelMatch(ctx, s.lists, match)
	if err != nil {
		logutil.GetLogger(ctx).Error("invalidate list cache failed", zap.String("scope", scope), zap.Error(err))
	}
	scnt, err := cacheapi.DelMatch(ctx, s.stats, match)
	if err != nil {
		logutil.GetLogger(ctx).Error("invalidate stat cache failed", zap.String("scope", scope), zap.Error(err))
	}
	logutil.GetLogger(ctx).Debug("cache invalidated", zap.String("scope", scope),
		zap.Int("list_count", lcnt), zap.Int("stat_count", scnt))
	s.impl.Invalidate(ctx, scope)
}

func (s *cachedStore) Close() error {
	if s.bodyCache != nil {
		s.bodyCache.Close()
	}
	return s.impl.Close()
}
