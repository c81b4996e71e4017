package objstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotExist = fmt.Errorf("object not exist:%w", os.ErrNotExist)
)

type EntryKind int

const (
	KindFile EntryKind = iota + 1
	KindDirectory
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	}
	return "unknown"
}

// Entry is one item reported by a listing or a stat. ModTime may be zero
// when the backend has no timestamp for it (e.g. implied directories).
type Entry struct {
	Name    string
	Kind    EntryKind
	Size    int64
	ModTime time.Time
}

func (e *Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// IObjectStore is a flat key space, keys use "/" as separator but the
// store has no native directories: a "directory" is any key prefix that
// has at least one object below it.
type IObjectStore interface {
	Name() string
	// List returns the immediate children of prefix, ErrNotExist if nothing lives below it.
	List(ctx context.Context, prefix string) ([]*Entry, error)
	Stat(ctx context.Context, key string) (*Entry, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes a single object, ErrNotExist if it was not there.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Invalidate drops any cached view rooted at scope.
	Invalidate(ctx context.Context, scope string)
	Close() error
}

func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// ChildName returns the first segment of key below prefix and whether key
// lives deeper than that segment.
func ChildName(prefix string, key string) (string, bool, bool) {
	if len(prefix) > 0 {
		if !strings.HasPrefix(key, prefix+"/") {
			return "", false, false
		}
		key = key[len(prefix)+1:]
	}
	if len(key) == 0 {
		return "", false, false
	}
	idx := strings.Index(key, "/")
	if idx < 0 {
		return key, false, true
	}
	return key[:idx], true, true
}

func JoinKey(prefix string, name string) string {
	if len(prefix) == 0 {
		return name
	}
	return prefix + "/" + name
}

func SortEntries(ents []*Entry) {
	sort.Slice(ents, func(i, j int) bool {
		return ents[i].Name < ents[j].Name
	})
}

type CreateFunc func(args interface{}) (IObjectStore, error)

var mp = make(map[string]CreateFunc)

func Register(name string, fn CreateFunc) {
	mp[name] = fn
}

func Create(name string, args interface{}) (IObjectStore, error) {
	fn, ok := mp[name]
	if !ok {
		return nil, fmt.Errorf("object store type not found, name:%s", name)
	}
	return fn(args)
}

func List() []string {
	rs := make([]string, 0, len(mp))
	for name := range mp {
		rs = append(rs, name)
	}
	sort.Strings(rs)
	return rs
}
