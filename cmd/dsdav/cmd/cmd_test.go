package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/dsdav/config"
)

func TestBackendsCmd(t *testing.T) {
	root := NewRoot()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"backends"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "badger\nlocal\nmem\ns3\nsqlite\n", buf.String())
}

func TestBuildObjectStore(t *testing.T) {
	ctx := context.Background()
	c := &config.Config{
		Store: config.StoreConfig{Kind: "mem", Config: map[string]interface{}{}},
		Cache: config.CacheConfig{Enable: true, BodyCacheSize: 1 << 20, BodyKeySizeLimit: 1024},
	}
	st, err := buildObjectStore(c)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Write(ctx, "a/b", []byte("x")))
	raw, err := st.Read(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "x", string(raw))

	c.Store.Kind = "nope"
	_, err = buildObjectStore(c)
	assert.Error(t, err)
}
