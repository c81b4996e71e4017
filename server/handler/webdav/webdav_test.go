package webdav

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/dsdav/dataset"
	"github.com/xxxsen/dsdav/objstore"
	"github.com/xxxsen/dsdav/objstore/cache"
	"github.com/xxxsen/dsdav/objstore/mem"
)

type invalidateRecorder struct {
	objstore.IObjectStore
	mu     sync.Mutex
	scopes []string
}

func (r *invalidateRecorder) Invalidate(ctx context.Context, scope string) {
	r.mu.Lock()
	r.scopes = append(r.scopes, scope)
	r.mu.Unlock()
	r.IObjectStore.Invalidate(ctx, scope)
}

func (r *invalidateRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = nil
}

func (r *invalidateRecorder) takeScopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.scopes
	r.scopes = nil
	return rs
}

type testEnv struct {
	engine *gin.Engine
	store  *invalidateRecorder
}

func newTestEnv(t *testing.T, root string, maxBody int64) *testEnv {
	return newTestEnvWithStore(t, root, maxBody, mem.New())
}

func newTestEnvWithStore(t *testing.T, root string, maxBody int64, impl objstore.IObjectStore) *testEnv {
	gin.SetMode(gin.TestMode)
	st := &invalidateRecorder{IObjectStore: impl}
	ds := dataset.New(st, "alice", "data")
	h := NewWebdavHandler(root, maxBody)
	e := gin.New()
	bind := func(c *gin.Context) {
		c.Request = c.Request.WithContext(dataset.WithContext(c.Request.Context(), ds))
	}
	grp := e.Group(root, bind)
	for _, m := range AllowMethods {
		grp.Handle(m, "/*all", h.Handler)
	}
	return &testEnv{engine: e, store: st}
}

func (e *testEnv) do(method string, target string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if len(body) > 0 {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, r)
	return w
}

type xmlMultistatus struct {
	Responses []struct {
		Href     string `xml:"href"`
		Propstat struct {
			Prop struct {
				ResourceType struct {
					Collection *struct{} `xml:"collection"`
				} `xml:"resourcetype"`
				ContentType   string `xml:"getcontenttype"`
				ContentLength string `xml:"getcontentlength"`
				DisplayName   string `xml:"displayname"`
				LastModified  string `xml:"getlastmodified"`
			} `xml:"prop"`
			Status string `xml:"status"`
		} `xml:"propstat"`
	} `xml:"response"`
}

func parseMultistatus(t *testing.T, body string) *xmlMultistatus {
	ms := &xmlMultistatus{}
	require.NoError(t, xml.Unmarshal([]byte(body), ms))
	return ms
}

func TestPutGet(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	w := env.do(http.MethodPut, "/x.txt", "hello", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"datasets/alice/data"}, env.store.takeScopes())

	w = env.do(http.MethodGet, "/x.txt", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "5", w.Header().Get("Content-Length"))
	assert.Equal(t, "attachment; filename*=UTF-8''x.txt", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "1,2", w.Header().Get("DAV"))
	assert.Equal(t, "DAV", w.Header().Get("MS-Author-Via"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("ETag"))
}

func TestPutNestedCreatesMarkers(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	w := env.do(http.MethodPut, "/a/b/c.txt", "1", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"datasets/alice/data/a/b"}, env.store.takeScopes())
	for _, k := range []string{"datasets/alice/data/a/.keep", "datasets/alice/data/a/b/.keep"} {
		ok, err := env.store.Exists(context.Background(), k)
		require.NoError(t, err)
		assert.True(t, ok, k)
	}
}

func TestGetHeadMissing(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/never.txt", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodHead, "/never.txt", "", nil).Code)
}

func TestInvalidPath(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/a/%2e%2e/b", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/a%00b", "x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("PROPFIND", "/a%5Cb", "", nil).Code)
}

func TestHead(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/doc.html", "<html></html>", nil).Code)
	w := env.do(http.MethodHead, "/doc.html", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "13", w.Header().Get("Content-Length"))
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))
	assert.Equal(t, 0, w.Body.Len())
}

func TestPropfindCollection(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/a.txt", "0123456789", nil).Code)
	require.Equal(t, http.StatusCreated, env.do("MKCOL", "/b", "", nil).Code)
	env.store.reset()

	w := env.do("PROPFIND", "/", "", map[string]string{"Depth": "1"})
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Equal(t, "application/xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, w.Body.String(), `<D:multistatus xmlns:D="DAV:">`)
	assert.Equal(t, []string{"datasets/alice/data"}, env.store.takeScopes())

	ms := parseMultistatus(t, w.Body.String())
	require.Equal(t, 3, len(ms.Responses))
	self := ms.Responses[0]
	assert.Equal(t, "/", self.Href)
	assert.Equal(t, "/", self.Propstat.Prop.DisplayName)
	assert.NotNil(t, self.Propstat.Prop.ResourceType.Collection)

	dir := ms.Responses[1]
	assert.Equal(t, "/b/", dir.Href)
	assert.Equal(t, "httpd/unix-directory", dir.Propstat.Prop.ContentType)
	assert.NotNil(t, dir.Propstat.Prop.ResourceType.Collection)

	file := ms.Responses[2]
	assert.Equal(t, "/a.txt", file.Href)
	assert.Equal(t, "10", file.Propstat.Prop.ContentLength)
	assert.Equal(t, "application/octet-stream", file.Propstat.Prop.ContentType)
	assert.Nil(t, file.Propstat.Prop.ResourceType.Collection)
	for _, r := range ms.Responses {
		assert.Equal(t, "HTTP/1.1 200 OK", r.Propstat.Status)
	}
}

func TestPropfindEncodesHref(t *testing.T) {
	env := newTestEnv(t, "/dav", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/dav/my%20dir/%E4%B8%AD.txt", "x", nil).Code)
	w := env.do("PROPFIND", "/dav/my%20dir", "", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	ms := parseMultistatus(t, w.Body.String())
	require.Equal(t, 2, len(ms.Responses))
	assert.Equal(t, "/dav/my%20dir/", ms.Responses[0].Href)
	assert.Equal(t, "my dir", ms.Responses[0].Propstat.Prop.DisplayName)
	assert.Equal(t, "/dav/my%20dir/%E4%B8%AD.txt", ms.Responses[1].Href)
	assert.Equal(t, "中.txt", ms.Responses[1].Propstat.Prop.DisplayName)
}

func TestPropfindFileAndMissing(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/d/f.bin", "abc", nil).Code)
	w := env.do("PROPFIND", "/d/f.bin", "", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	ms := parseMultistatus(t, w.Body.String())
	require.Equal(t, 1, len(ms.Responses))
	assert.Equal(t, "/d/f.bin", ms.Responses[0].Href)
	assert.Equal(t, "3", ms.Responses[0].Propstat.Prop.ContentLength)

	assert.Equal(t, http.StatusNotFound, env.do("PROPFIND", "/nothing", "", nil).Code)

	w = env.do("PROPFIND", "/", "", nil)
	assert.Equal(t, http.StatusMultiStatus, w.Code)
}

func TestPropfindEmptyRoot(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	w := env.do("PROPFIND", "/", "", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	ms := parseMultistatus(t, w.Body.String())
	assert.Equal(t, 1, len(ms.Responses))
}

func TestMkcol(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	w := env.do("MKCOL", "/z", "", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"datasets/alice/data"}, env.store.takeScopes())

	w = env.do("PROPFIND", "/", "", nil)
	ms := parseMultistatus(t, w.Body.String())
	require.Equal(t, 2, len(ms.Responses))
	assert.Equal(t, "/z/", ms.Responses[1].Href)

	env.store.reset()
	w = env.do("MKCOL", "/p/q", "", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"datasets/alice/data/p"}, env.store.takeScopes())

	assert.Equal(t, http.StatusMethodNotAllowed, env.do("MKCOL", "/", "", nil).Code)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/d/1.txt", "1", nil).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/d/2.txt", "2", nil).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/d/s/3.txt", "3", nil).Code)
	env.store.reset()

	w := env.do(http.MethodDelete, "/d", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	scopes := env.store.takeScopes()
	require.NotEmpty(t, scopes)
	assert.Equal(t, "datasets/alice/data", scopes[len(scopes)-1])

	_, err := env.store.List(context.Background(), "datasets/alice/data/d")
	assert.True(t, objstore.IsNotExist(err))
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/d", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, "/", "", nil).Code)
}

func TestMove(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/x.txt", "payload", nil).Code)
	env.store.reset()

	w := env.do("MOVE", "/x.txt", "", map[string]string{"Destination": "http://localhost/y/x.txt"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"datasets/alice/data", "datasets/alice/data/y"}, env.store.takeScopes())

	w = env.do(http.MethodGet, "/y/x.txt", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payload", w.Body.String())
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/x.txt", "", nil).Code)

	w = env.do("PROPFIND", "/", "", nil)
	ms := parseMultistatus(t, w.Body.String())
	hrefs := []string{}
	for _, r := range ms.Responses {
		hrefs = append(hrefs, r.Href)
	}
	assert.Contains(t, hrefs, "/y/")
}

func TestMoveErrors(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/x.txt", "1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("MOVE", "/x.txt", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do("MOVE", "/x.txt", "", map[string]string{"Destination": "/x.txt"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("COPY", "/x.txt", "", map[string]string{"Destination": "/%2e%2e/x"}).Code)
	assert.Equal(t, http.StatusInternalServerError, env.do("MOVE", "/none.txt", "", map[string]string{"Destination": "/y.txt"}).Code)
}

func TestCopy(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/src.txt", "data", nil).Code)
	env.store.reset()

	w := env.do("COPY", "/src.txt", "", map[string]string{"Destination": "/n/dst.txt"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"datasets/alice/data/n"}, env.store.takeScopes())
	assert.Equal(t, "data", env.do(http.MethodGet, "/src.txt", "", nil).Body.String())
	assert.Equal(t, "data", env.do(http.MethodGet, "/n/dst.txt", "", nil).Body.String())
}

func TestOptionsAndUnsupported(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	w := env.do(http.MethodOptions, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "GET, HEAD, PUT, PROPFIND, PROPPATCH, MKCOL, DELETE, COPY, MOVE, LOCK, UNLOCK, OPTIONS", w.Header().Get("Allow"))
	assert.Equal(t, "1,2", w.Header().Get("DAV"))
	for _, m := range []string{"PROPPATCH", "LOCK", "UNLOCK"} {
		assert.Equal(t, http.StatusMethodNotAllowed, env.do(m, "/x", "", nil).Code, m)
	}
}

func TestPutBodyLimit(t *testing.T) {
	env := newTestEnv(t, "/", 4)
	assert.Equal(t, http.StatusRequestEntityTooLarge, env.do(http.MethodPut, "/big", "12345", nil).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/ok", "1234", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(http.MethodPut, "/", "1", nil).Code)
}

func TestMarkerHidden(t *testing.T) {
	env := newTestEnv(t, "/", 0)
	require.Equal(t, http.StatusCreated, env.do("MKCOL", "/a", "", nil).Code)
	ok, err := env.store.Exists(context.Background(), "datasets/alice/data/a/.keep")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/a/.keep", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodHead, "/a/.keep", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do("PROPFIND", "/a/.keep", "", nil).Code)

	w := env.do("PROPFIND", "/a", "", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Equal(t, 1, len(parseMultistatus(t, w.Body.String()).Responses))
}

func TestCachedStoreCoherence(t *testing.T) {
	st, err := cache.New(mem.New(), cache.WithBodyCache(1<<20, 1<<10))
	require.NoError(t, err)
	defer st.Close()
	env := newTestEnvWithStore(t, "/", 0, st)

	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/f.txt", "v1", nil).Code)
	assert.Equal(t, "v1", env.do(http.MethodGet, "/f.txt", "", nil).Body.String())
	assert.Equal(t, "2", env.do(http.MethodHead, "/f.txt", "", nil).Header().Get("Content-Length"))
	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/f.txt", "v2-long", nil).Code)
	assert.Equal(t, "v2-long", env.do(http.MethodGet, "/f.txt", "", nil).Body.String())
	assert.Equal(t, "7", env.do(http.MethodHead, "/f.txt", "", nil).Header().Get("Content-Length"))

	require.Equal(t, http.StatusCreated, env.do("MOVE", "/f.txt", "", map[string]string{"Destination": "/m/f.txt"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/f.txt", "", nil).Code)
	assert.Equal(t, "v2-long", env.do(http.MethodGet, "/m/f.txt", "", nil).Body.String())

	require.Equal(t, http.StatusCreated, env.do(http.MethodPut, "/d/s/x.txt", "x", nil).Code)
	require.Equal(t, http.StatusMultiStatus, env.do("PROPFIND", "/d", "", nil).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodHead, "/d/s/x.txt", "", nil).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodHead, "/d", "", nil).Code)
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/d", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodHead, "/d", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodHead, "/d/s/x.txt", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/d/s/x.txt", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do("PROPFIND", "/d", "", nil).Code)

	w := env.do("PROPFIND", "/", "", nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)
	hrefs := []string{}
	for _, r := range parseMultistatus(t, w.Body.String()).Responses {
		hrefs = append(hrefs, r.Href)
	}
	assert.Equal(t, []string{"/", "/m/"}, hrefs)
}

func TestBuildMultistatusOrder(t *testing.T) {
	h := NewWebdavHandler("/", 0)
	ents := []*objstore.Entry{
		{Name: "d/z.txt", Kind: objstore.KindFile, Size: 1},
		{Name: "d/b", Kind: objstore.KindDirectory},
		{Name: "d/a.txt", Kind: objstore.KindFile, Size: 2},
		{Name: "d/a", Kind: objstore.KindDirectory},
	}
	ms := h.buildMultistatus("d", ents, testNow)
	hrefs := make([]string, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		hrefs = append(hrefs, r.Href)
	}
	assert.Equal(t, []string{"/d/", "/d/a/", "/d/b/", "/d/a.txt", "/d/z.txt"}, hrefs)
	assert.Equal(t, "d", ms.Responses[0].Propstat.Prop.DisplayName)
}
