package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/objstore"
	"go.uber.org/zap"
)

const mtimeSize = 8

type config struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type badgerStore struct {
	db *badger.DB
}

func encodeValue(data []byte, mtime time.Time) []byte {
	buf := make([]byte, mtimeSize+len(data))
	binary.BigEndian.PutUint64(buf, uint64(mtime.UnixNano()))
	copy(buf[mtimeSize:], data)
	return buf
}

func decodeValue(val []byte) ([]byte, time.Time, error) {
	if len(val) < mtimeSize {
		return nil, time.Time{}, fmt.Errorf("invalid value size:%d", len(val))
	}
	ts := int64(binary.BigEndian.Uint64(val[:mtimeSize]))
	return val[mtimeSize:], time.Unix(0, ts), nil
}

func (s *badgerStore) Name() string {
	return "badger"
}

func (s *badgerStore) List(ctx context.Context, prefix string) ([]*objstore.Entry, error) {
	scan := []byte{}
	if len(prefix) > 0 {
		scan = []byte(prefix + "/")
	}
	rs := make([]*objstore.Entry, 0, 32)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = scan
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		for it.Valid() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key())
			name, deep, ok := objstore.ChildName(prefix, key)
			if !ok {
				it.Next()
				continue
			}
			full := objstore.JoinKey(prefix, name)
			if deep {
				rs = append(rs, &objstore.Entry{Name: full, Kind: objstore.KindDirectory})
				// '0' sorts right after '/', jump past the whole subtree.
				it.Seek([]byte(full + "0"))
				continue
			}
			ent := &objstore.Entry{Name: full, Kind: objstore.KindFile}
			if err := item.Value(func(val []byte) error {
				data, mtime, err := decodeValue(val)
				if err != nil {
					return err
				}
				ent.Size = int64(len(data))
				ent.ModTime = mtime
				return nil
			}); err != nil {
				return fmt.Errorf("decode key:%s failed, err:%w", key, err)
			}
			rs = append(rs, ent)
			it.Next()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, err)
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, objstore.ErrNotExist)
	}
	objstore.SortEntries(rs)
	return rs, nil
}

func (s *badgerStore) Stat(ctx context.Context, key string) (*objstore.Entry, error) {
	var ent *objstore.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == nil {
			return item.Value(func(val []byte) error {
				data, mtime, err := decodeValue(val)
				if err != nil {
					return err
				}
				ent = &objstore.Entry{Name: key, Kind: objstore.KindFile, Size: int64(len(data)), ModTime: mtime}
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(key + "/")
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		if it.Valid() {
			ent = &objstore.Entry{Name: key, Kind: objstore.KindDirectory}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("stat key:%s failed, err:%w", key, err)
	}
	if ent == nil {
		return nil, fmt.Errorf("stat key:%s failed, err:%w", key, objstore.ErrNotExist)
	}
	return ent, nil
}

func (s *badgerStore) Read(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		data, _, err := decodeValue(val)
		if err != nil {
			return err
		}
		out = data
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("read key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		return nil, fmt.Errorf("read key:%s failed, err:%w", key, err)
	}
	return out, nil
}

func (s *badgerStore) Write(ctx context.Context, key string, data []byte) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeValue(data, time.Now()))
	}); err != nil {
		return fmt.Errorf("write key:%s failed, err:%w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		return fmt.Errorf("delete key:%s failed, err:%w", key, err)
	}
	return nil
}

func (s *badgerStore) Exists(ctx context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("check key:%s failed, err:%w", key, err)
}

func (s *badgerStore) Invalidate(ctx context.Context, scope string) {}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func New(ctx context.Context, c *config) (objstore.IObjectStore, error) {
	var opts badger.Options
	switch {
	case c.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case len(c.Path) > 0:
		opts = badger.DefaultOptions(c.Path)
	default:
		return nil, fmt.Errorf("badger store: path is required")
	}
	opts = opts.WithLogger(&zapLogger{l: logutil.GetLogger(ctx).With(zap.String("component", "badger"))})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at:%s failed, err:%w", c.Path, err)
	}
	return &badgerStore{db: db}, nil
}

func create(args interface{}) (objstore.IObjectStore, error) {
	c := &config{}
	if err := mapstructure.Decode(args, c); err != nil {
		return nil, fmt.Errorf("decode badger store config failed, err:%w", err)
	}
	return New(context.Background(), c)
}

func init() {
	objstore.Register("badger", create)
}
