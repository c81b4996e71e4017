package local

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/xxxsen/dsdav/objstore"
	"github.com/xxxsen/dsdav/utils"
)

type config struct {
	Dir string `mapstructure:"dir"`
}

// localStore maps keys onto files below a base directory, directories
// on disk only exist while something lives below them.
type localStore struct {
	fs afero.Fs
}

func (s *localStore) Name() string {
	return "local"
}

func toPath(key string) string {
	return "/" + key
}

func (s *localStore) List(ctx context.Context, prefix string) ([]*objstore.Entry, error) {
	infos, err := afero.ReadDir(s.fs, toPath(prefix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, objstore.ErrNotExist)
		}
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, err)
	}
	rs := make([]*objstore.Entry, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() && utils.IsTempFile(info.Name()) {
			continue
		}
		ent := &objstore.Entry{
			Name:    objstore.JoinKey(prefix, info.Name()),
			Kind:    objstore.KindFile,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if info.IsDir() {
			ent.Kind = objstore.KindDirectory
			ent.Size = 0
		}
		rs = append(rs, ent)
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("list prefix:%s failed, err:%w", prefix, objstore.ErrNotExist)
	}
	objstore.SortEntries(rs)
	return rs, nil
}

func (s *localStore) Stat(ctx context.Context, key string) (*objstore.Entry, error) {
	info, err := s.fs.Stat(toPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("stat key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		return nil, fmt.Errorf("stat key:%s failed, err:%w", key, err)
	}
	if info.IsDir() {
		return &objstore.Entry{Name: key, Kind: objstore.KindDirectory, ModTime: info.ModTime()}, nil
	}
	return &objstore.Entry{Name: key, Kind: objstore.KindFile, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *localStore) Read(ctx context.Context, key string) ([]byte, error) {
	raw, err := afero.ReadFile(s.fs, toPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		return nil, fmt.Errorf("read key:%s failed, err:%w", key, err)
	}
	return raw, nil
}

func (s *localStore) Write(ctx context.Context, key string, data []byte) error {
	if err := utils.SafeSaveToFs(s.fs, toPath(key), data); err != nil {
		return fmt.Errorf("write key:%s failed, err:%w", key, err)
	}
	return nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	p := toPath(key)
	info, err := s.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete key:%s failed, err:%w", key, objstore.ErrNotExist)
		}
		return fmt.Errorf("delete key:%s failed, err:%w", key, err)
	}
	if info.IsDir() {
		return fmt.Errorf("delete key:%s failed, key is a directory", key)
	}
	if err := s.fs.Remove(p); err != nil {
		return fmt.Errorf("delete key:%s failed, err:%w", key, err)
	}
	if err := utils.PruneEmptyDirs(s.fs, path.Dir(p), "/"); err != nil {
		return fmt.Errorf("prune parent of key:%s failed, err:%w", key, err)
	}
	return nil
}

func (s *localStore) Exists(ctx context.Context, key string) (bool, error) {
	info, err := s.fs.Stat(toPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("check key:%s failed, err:%w", key, err)
	}
	return !info.IsDir(), nil
}

func (s *localStore) Invalidate(ctx context.Context, scope string) {}

func (s *localStore) Close() error {
	return nil
}

// NewWithFs builds a store rooted at the given filesystem.
func NewWithFs(fs afero.Fs) objstore.IObjectStore {
	return &localStore{fs: fs}
}

func New(c *config) (objstore.IObjectStore, error) {
	if len(c.Dir) == 0 {
		return nil, fmt.Errorf("local store: dir is required")
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create local store dir:%s failed, err:%w", c.Dir, err)
	}
	return NewWithFs(afero.NewBasePathFs(afero.NewOsFs(), c.Dir)), nil
}

func create(args interface{}) (objstore.IObjectStore, error) {
	c := &config{}
	if err := mapstructure.Decode(args, c); err != nil {
		return nil, fmt.Errorf("decode local store config failed, err:%w", err)
	}
	return New(c)
}

func init() {
	objstore.Register("local", create)
}
