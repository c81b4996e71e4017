package dataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/objstore"
	"github.com/xxxsen/dsdav/pathkit"
	"go.uber.org/zap"
)

const rootPrefix = "datasets"

// Dataset binds one owner/dataset pair to the store, every path it takes
// is a cleaned path relative to the dataset root.
type Dataset struct {
	owner string
	name  string
	root  string
	store objstore.IObjectStore
}

func New(store objstore.IObjectStore, owner string, name string) *Dataset {
	return &Dataset{
		owner: owner,
		name:  name,
		root:  rootPrefix + "/" + owner + "/" + name,
		store: store,
	}
}

func (d *Dataset) Owner() string {
	return d.owner
}

func (d *Dataset) Name() string {
	return d.name
}

func (d *Dataset) Root() string {
	return d.root
}

func (d *Dataset) key(p string) string {
	if len(p) == 0 {
		return d.root
	}
	return objstore.JoinKey(d.root, p)
}

func (d *Dataset) rel(key string) string {
	if key == d.root {
		return ""
	}
	return strings.TrimPrefix(key, d.root+"/")
}

// List returns the visible children of directory p, markers excluded.
// The dataset root always exists and lists as empty when nothing is there.
func (d *Dataset) List(ctx context.Context, p string) ([]*objstore.Entry, error) {
	ents, err := d.store.List(ctx, d.key(p))
	if err != nil {
		if objstore.IsNotExist(err) && len(p) == 0 {
			return []*objstore.Entry{}, nil
		}
		return nil, err
	}
	rs := make([]*objstore.Entry, 0, len(ents))
	for _, ent := range ents {
		if IsMarker(ent.Name) {
			continue
		}
		rs = append(rs, &objstore.Entry{
			Name:    d.rel(ent.Name),
			Kind:    ent.Kind,
			Size:    ent.Size,
			ModTime: ent.ModTime,
		})
	}
	return rs, nil
}

func (d *Dataset) Stat(ctx context.Context, p string) (*objstore.Entry, error) {
	if len(p) == 0 {
		return &objstore.Entry{Name: "", Kind: objstore.KindDirectory}, nil
	}
	ent, err := d.store.Stat(ctx, d.key(p))
	if err != nil {
		return nil, err
	}
	return &objstore.Entry{Name: p, Kind: ent.Kind, Size: ent.Size, ModTime: ent.ModTime}, nil
}

func (d *Dataset) Read(ctx context.Context, p string) ([]byte, error) {
	return d.store.Read(ctx, d.key(p))
}

func (d *Dataset) Write(ctx context.Context, p string, data []byte) error {
	return d.store.Write(ctx, d.key(p), data)
}

func (d *Dataset) Delete(ctx context.Context, p string) error {
	return d.store.Delete(ctx, d.key(p))
}

func (d *Dataset) Exists(ctx context.Context, p string) (bool, error) {
	return d.store.Exists(ctx, d.key(p))
}

// Invalidate drops cached views at or below scope.
func (d *Dataset) Invalidate(ctx context.Context, scope string) {
	d.store.Invalidate(ctx, d.key(scope))
}

// EnsureParentDirs creates the marker of every strict ancestor of p that
// does not have one yet, nearest to the root first.
func (d *Dataset) EnsureParentDirs(ctx context.Context, p string) error {
	for _, dir := range pathkit.Ancestors(p) {
		mk := DirectoryMarker{Dir: dir}.Path()
		ok, err := d.Exists(ctx, mk)
		if err != nil {
			return fmt.Errorf("check marker:%s failed, err:%w", mk, err)
		}
		if ok {
			continue
		}
		if err := d.Write(ctx, mk, []byte{}); err != nil {
			return fmt.Errorf("create marker:%s failed, err:%w", mk, err)
		}
	}
	return nil
}

func (d *Dataset) MakeCollection(ctx context.Context, p string) error {
	mk := DirectoryMarker{Dir: p}.Path()
	if err := d.Write(ctx, mk, []byte{}); err != nil {
		return fmt.Errorf("create marker:%s failed, err:%w", mk, err)
	}
	return nil
}

func (d *Dataset) deleteKey(ctx context.Context, key string) error {
	if err := d.store.Delete(ctx, key); err != nil && !objstore.IsNotExist(err) {
		return fmt.Errorf("delete key:%s failed, err:%w", key, err)
	}
	return nil
}

// RecursiveDelete removes p and everything below it. A missing path is not an error.
func (d *Dataset) RecursiveDelete(ctx context.Context, p string) error {
	ent, err := d.Stat(ctx, p)
	if err != nil {
		if objstore.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat path:%s failed, err:%w", p, err)
	}
	if !ent.IsDir() {
		return d.deleteKey(ctx, d.key(p))
	}
	d.Invalidate(ctx, p)
	logger := logutil.GetLogger(ctx).With(zap.String("owner", d.Owner()), zap.String("dataset", d.Name()), zap.String("path", p))
	var files, dirs int
	stack := []string{d.key(p)}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ents, err := d.store.List(ctx, cur)
		if err != nil {
			if objstore.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("list key:%s failed, err:%w", cur, err)
		}
		for _, ent := range ents {
			if ent.IsDir() {
				stack = append(stack, ent.Name)
				dirs++
				continue
			}
			if err := d.deleteKey(ctx, ent.Name); err != nil {
				return err
			}
			files++
		}
	}
	mk := d.key(DirectoryMarker{Dir: p}.Path())
	ok, err := d.store.Exists(ctx, mk)
	if err != nil {
		return fmt.Errorf("check marker:%s failed, err:%w", mk, err)
	}
	if ok {
		if err := d.deleteKey(ctx, mk); err != nil {
			return err
		}
	}
	logger.Debug("recursive delete finished", zap.Int("file_count", files), zap.Int("dir_count", dirs))
	return nil
}
