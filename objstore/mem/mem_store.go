package mem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/xxxsen/dsdav/objstore"
)

type memObject struct {
	data  []byte
	mtime time.Time
}

type memStore struct {
	mu sync.RWMutex
	m  map[string]*memObject
}

func (m *memStore) Name() string {
	return "mem"
}

func (m *memStore) List(ctx context.Context, prefix string) ([]*objstore.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := make(map[string]*objstore.Entry)
	dirs := make(map[string]*objstore.Entry)
	for key, obj := range m.m {
		name, deep, ok := objstore.ChildName(prefix, key)
		if !ok {
			continue
		}
		full := objstore.JoinKey(prefix, name)
		if deep {
			dir, ok := dirs[full]
			if !ok {
				dir = &objstore.Entry{Name: full, Kind: objstore.KindDirectory}
				dirs[full] = dir
			}
			if obj.mtime.After(dir.ModTime) {
				dir.ModTime = obj.mtime
			}
			continue
		}
		files[full] = &objstore.Entry{
			Name:    full,
			Kind:    objstore.KindFile,
			Size:    int64(len(obj.data)),
			ModTime: obj.mtime,
		}
	}
	if len(files) == 0 && len(dirs) == 0 {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, objstore.ErrNotExist)
	}
	rs := make([]*objstore.Entry, 0, len(files)+len(dirs))
	for _, ent := range dirs {
		rs = append(rs, ent)
	}
	for _, ent := range files {
		rs = append(rs, ent)
	}
	objstore.SortEntries(rs)
	return rs, nil
}

func (m *memStore) Stat(ctx context.Context, key string) (*objstore.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if obj, ok := m.m[key]; ok {
		return &objstore.Entry{Name: key, Kind: objstore.KindFile, Size: int64(len(obj.data)), ModTime: obj.mtime}, nil
	}
	for k := range m.m {
		if _, _, ok := objstore.ChildName(key, k); ok {
			return &objstore.Entry{Name: key, Kind: objstore.KindDirectory}, nil
		}
	}
	return nil, fmt.Errorf("stat key:%s failed, err:%w", key, objstore.ErrNotExist)
}

func (m *memStore) Read(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.m[key]
	if !ok {
		return nil, fmt.Errorf("read key:%s failed, err:%w", key, objstore.ErrNotExist)
	}
	rs := make([]byte, len(obj.data))
	copy(rs, obj.data)
	return rs, nil
}

func (m *memStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = &memObject{data: raw, mtime: time.Now()}
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.m[key]; !ok {
		return fmt.Errorf("delete key:%s failed, err:%w", key, objstore.ErrNotExist)
	}
	delete(m.m, key)
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.m[key]
	return ok, nil
}

func (m *memStore) Invalidate(ctx context.Context, scope string) {}

func (m *memStore) Close() error {
	return nil
}

func New() objstore.IObjectStore {
	return &memStore{m: make(map[string]*memObject)}
}

type config struct {
	Preload map[string]string `mapstructure:"preload"`
}

func create(args interface{}) (objstore.IObjectStore, error) {
	c := &config{}
	if err := mapstructure.Decode(args, c); err != nil {
		return nil, fmt.Errorf("decode mem store config failed, err:%w", err)
	}
	st := New()
	for key, val := range c.Preload {
		if err := st.Write(context.Background(), key, []byte(val)); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func init() {
	objstore.Register("mem", create)
}
