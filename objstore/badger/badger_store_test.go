package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xxxsen/dsdav/objstore"
)

func newTestStore(t *testing.T) objstore.IObjectStore {
	st, err := New(context.Background(), &config{InMemory: true})
	assert.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestValueCodec(t *testing.T) {
	now := time.Unix(1700000000, 123)
	data, mtime, err := decodeValue(encodeValue([]byte("abc"), now))
	assert.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.True(t, now.Equal(mtime))
	_, _, err = decodeValue([]byte{1, 2})
	assert.Error(t, err)
}

func TestReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	assert.NoError(t, st.Write(ctx, "a/b.txt", []byte("hello")))
	raw, err := st.Read(ctx, "a/b.txt")
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	ok, err := st.Exists(ctx, "a/b.txt")
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, st.Delete(ctx, "a/b.txt"))
	_, err = st.Read(ctx, "a/b.txt")
	assert.True(t, objstore.IsNotExist(err))
	err = st.Delete(ctx, "a/b.txt")
	assert.True(t, objstore.IsNotExist(err))
}

func TestListSkipsSubtree(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	for _, k := range []string{"ds/a/1", "ds/a/2", "ds/a/x/3", "ds/a0", "ds/b.txt", "dsx/c"} {
		assert.NoError(t, st.Write(ctx, k, []byte(k)))
	}
	ents, err := st.List(ctx, "ds")
	assert.NoError(t, err)
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"ds/a", "ds/a0", "ds/b.txt"}, names)
	assert.True(t, ents[0].IsDir())
	assert.Equal(t, int64(len("ds/b.txt")), ents[2].Size)

	_, err = st.List(ctx, "none")
	assert.True(t, objstore.IsNotExist(err))
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	assert.NoError(t, st.Write(ctx, "d/f", []byte("xy")))
	ent, err := st.Stat(ctx, "d/f")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), ent.Size)
	ent, err = st.Stat(ctx, "d")
	assert.NoError(t, err)
	assert.True(t, ent.IsDir())
	_, err = st.Stat(ctx, "q")
	assert.True(t, objstore.IsNotExist(err))
}
