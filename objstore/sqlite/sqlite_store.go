package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/mitchellh/mapstructure"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
	"github.com/xxxsen/common/database/sqlite"
	"github.com/xxxsen/dsdav/objstore"
)

const (
	metaTable = "dsdav_object_tab"
	dataTable = "dsdav_object_data_tab"
)

var sqllist = []struct {
	name string
	sql  string
}{
	{
		name: "init_object_tab",
		sql: `
CREATE TABLE IF NOT EXISTS dsdav_object_tab (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    object_key    TEXT NOT NULL,
    object_size   INTEGER NOT NULL,
    ctime         INTEGER,
    mtime         INTEGER,
    UNIQUE (object_key)
);
		`,
	},
	{
		name: "init_object_data_tab",
		sql: `
CREATE TABLE IF NOT EXISTS dsdav_object_data_tab (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    object_key    TEXT NOT NULL,
    object_data   BLOB,
    UNIQUE (object_key)
);
		`,
	},
}

type config struct {
	File string `mapstructure:"file"`
}

type objectTab struct {
	Id         uint64 `json:"id"`
	ObjectKey  string `json:"object_key"`
	ObjectSize int64  `json:"object_size"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"mtime"`
}

type objectDataTab struct {
	Id         uint64 `json:"id"`
	ObjectKey  string `json:"object_key"`
	ObjectData []byte `json:"object_data"`
}

// sqliteStore keeps object metadata and bodies in two tables so that
// listings never touch the bodies.
type sqliteStore struct {
	dbc database.IDatabase
}

func (s *sqliteStore) Name() string {
	return "sqlite"
}

func toEntry(item *objectTab) *objstore.Entry {
	return &objstore.Entry{
		Name:    item.ObjectKey,
		Kind:    objstore.KindFile,
		Size:    item.ObjectSize,
		ModTime: time.UnixMilli(item.Mtime),
	}
}

func (s *sqliteStore) queryByPrefix(ctx context.Context, q database.IQueryer, prefix string, limit uint) ([]*objectTab, error) {
	where := map[string]interface{}{
		"_orderby": "object_key asc",
	}
	// like 对 '_' '%' 以及大小写不敏感, 结果需要调用方再次过滤
	if len(prefix) > 0 {
		where["object_key like"] = prefix + "/%"
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	rs := make([]*objectTab, 0, 32)
	if err := dbkit.SimpleQuery(ctx, q, metaTable, where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *sqliteStore) List(ctx context.Context, prefix string) ([]*objstore.Entry, error) {
	items, err := s.queryByPrefix(ctx, s.dbc, prefix, 0)
	if err != nil {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, err)
	}
	dirs := make(map[string]*objstore.Entry)
	rs := make([]*objstore.Entry, 0, len(items))
	for _, item := range items {
		name, deep, ok := objstore.ChildName(prefix, item.ObjectKey)
		if !ok {
			continue
		}
		full := objstore.JoinKey(prefix, name)
		if !deep {
			rs = append(rs, toEntry(item))
			continue
		}
		mtime := time.UnixMilli(item.Mtime)
		dir, ok := dirs[full]
		if !ok {
			dir = &objstore.Entry{Name: full, Kind: objstore.KindDirectory}
			dirs[full] = dir
			rs = append(rs, dir)
		}
		if mtime.After(dir.ModTime) {
			dir.ModTime = mtime
		}
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, objstore.ErrNotExist)
	}
	objstore.SortEntries(rs)
	return rs, nil
}

func (s *sqliteStore) getMeta(ctx context.Context, q database.IQueryer, key string) (*objectTab, bool, error) {
	where := map[string]interface{}{
		"object_key": key,
		"_limit":     []uint{0, 1},
	}
	rs := make([]*objectTab, 0, 1)
	if err := dbkit.SimpleQuery(ctx, q, metaTable, where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, false, err
	}
	if len(rs) == 0 {
		return nil, false, nil
	}
	return rs[0], true, nil
}

func (s *sqliteStore) Stat(ctx context.Context, key string) (*objstore.Entry, error) {
	item, ok, err := s.getMeta(ctx, s.dbc, key)
	if err != nil {
		return nil, fmt.Errorf("stat key:%s failed, err:%w", key, err)
	}
	if ok {
		return toEntry(item), nil
	}
	items, err := s.queryByPrefix(ctx, s.dbc, key, 0)
	if err != nil {
		return nil, fmt.Errorf("probe dir:%s failed, err:%w", key, err)
	}
	for _, item := range items {
		if _, _, ok := objstore.ChildName(key, item.ObjectKey); ok {
			return &objstore.Entry{Name: key, Kind: objstore.KindDirectory}, nil
		}
	}
	return nil, fmt.Errorf("stat key:%s failed, err:%w", key, objstore.ErrNotExist)
}

func (s *sqliteStore) Read(ctx context.Context, key string) ([]byte, error) {
	where := map[string]interface{}{
		"object_key": key,
		"_limit":     []uint{0, 1},
	}
	rs := make([]*objectDataTab, 0, 1)
	if err := dbkit.SimpleQuery(ctx, s.dbc, dataTable, where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, fmt.Errorf("read key:%s failed, err:%w", key, err)
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("read key:%s failed, err:%w", key, objstore.ErrNotExist)
	}
	if rs[0].ObjectData == nil {
		return []byte{}, nil
	}
	return rs[0].ObjectData, nil
}

func (s *sqliteStore) Write(ctx context.Context, key string, data []byte) error {
	now := time.Now().UnixMilli()
	return s.dbc.OnTransation(ctx, func(ctx context.Context, qe database.IQueryExecer) error {
		meta := []map[string]interface{}{
			{
				"object_key":  key,
				"object_size": len(data),
				"ctime":       now,
				"mtime":       now,
			},
		}
		sql, args, err := builder.BuildReplaceInsert(metaTable, meta)
		if err != nil {
			return err
		}
		if _, err := qe.ExecContext(ctx, sql, args...); err != nil {
			return fmt.Errorf("write meta of key:%s failed, err:%w", key, err)
		}
		body := []map[string]interface{}{
			{
				"object_key":  key,
				"object_data": data,
			},
		}
		sql, args, err = builder.BuildReplaceInsert(dataTable, body)
		if err != nil {
			return err
		}
		if _, err := qe.ExecContext(ctx, sql, args...); err != nil {
			return fmt.Errorf("write data of key:%s failed, err:%w", key, err)
		}
		return nil
	})
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	return s.dbc.OnTransation(ctx, func(ctx context.Context, qe database.IQueryExecer) error {
		_, ok, err := s.getMeta(ctx, qe, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("delete key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		where := map[string]interface{}{
			"object_key": key,
		}
		for _, tab := range []string{metaTable, dataTable} {
			sql, args, err := builder.BuildDelete(tab, where)
			if err != nil {
				return err
			}
			if _, err := qe.ExecContext(ctx, sql, args...); err != nil {
				return fmt.Errorf("delete key:%s from:%s failed, err:%w", key, tab, err)
			}
		}
		return nil
	})
}

func (s *sqliteStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.getMeta(ctx, s.dbc, key)
	if err != nil {
		return false, fmt.Errorf("check key:%s failed, err:%w", key, err)
	}
	return ok, nil
}

func (s *sqliteStore) Invalidate(ctx context.Context, scope string) {}

func (s *sqliteStore) Close() error {
	return s.dbc.Close()
}

func New(c *config) (objstore.IObjectStore, error) {
	if len(c.File) == 0 {
		return nil, fmt.Errorf("sqlite store: file is required")
	}
	ctx := context.Background()
	db, err := sqlite.New(c.File, func(db database.IDatabase) error {
		for _, item := range sqllist {
			if _, err := db.ExecContext(ctx, item.sql); err != nil {
				return fmt.Errorf("init sql failed, sql:%s, err:%w", item.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite:%s failed, err:%w", c.File, err)
	}
	return &sqliteStore{dbc: db}, nil
}

func create(args interface{}) (objstore.IObjectStore, error) {
	c := &config{}
	if err := mapstructure.Decode(args, c); err != nil {
		return nil, fmt.Errorf("decode sqlite store config failed, err:%w", err)
	}
	return New(c)
}

func init() {
	objstore.Register("sqlite", create)
}
