package webdav

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/dsdav/dataset"
	"github.com/xxxsen/dsdav/objstore"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
)

type WebdavHandler struct {
	root        string
	maxBodySize int64
}

// NewWebdavHandler creates a handler mounted at root, maxBodySize <= 0 means no limit.
func NewWebdavHandler(root string, maxBodySize int64) *WebdavHandler {
	if len(root) == 0 {
		root = "/"
	}
	return &WebdavHandler{root: root, maxBodySize: maxBodySize}
}

func (h *WebdavHandler) Handler(c *gin.Context) {
	httpkit.SetDavHeader(c)
	switch c.Request.Method {
	case http.MethodOptions:
		h.handleOption(c)
	case http.MethodGet:
		h.handleGet(c)
	case http.MethodHead:
		h.handleHead(c)
	case http.MethodPut:
		h.handlePut(c)
	case http.MethodDelete:
		h.handleDelete(c)
	case "PROPFIND":
		h.handlePropfind(c)
	case "MKCOL":
		h.handleMkcol(c)
	case "COPY":
		h.handleCopy(c)
	case "MOVE":
		h.handleMove(c)
	default:
		httpkit.Fail(c, http.StatusMethodNotAllowed, fmt.Errorf("unsupported method:%s", c.Request.Method))
	}
}

func (h *WebdavHandler) buildSrcPath(c *gin.Context) (string, error) {
	return pathkit.Clean(pathkit.StripRoot(c.Request.URL.EscapedPath(), h.root))
}

// buildVisiblePath is buildSrcPath for read verbs, directory markers are
// never exposed and answer 404.
func (h *WebdavHandler) buildVisiblePath(c *gin.Context) (string, bool) {
	p, err := h.buildSrcPath(c)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("build src path failed, err:%w", err))
		return "", false
	}
	if dataset.IsMarker(p) {
		httpkit.Fail(c, http.StatusNotFound, fmt.Errorf("marker is not visible, path:%s", p))
		return "", false
	}
	return p, true
}

func (h *WebdavHandler) tryBuildDstPath(c *gin.Context) (string, error) {
	dst, err := pathkit.ParseDestination(c.GetHeader("Destination"), h.root)
	if err != nil {
		return "", err
	}
	return pathkit.Clean(dst)
}

func (h *WebdavHandler) mustGetDataset(c *gin.Context) (*dataset.Dataset, bool) {
	ds, ok := dataset.FromContext(c.Request.Context())
	if !ok {
		httpkit.Fail(c, http.StatusUnauthorized, fmt.Errorf("no dataset bound to request"))
		return nil, false
	}
	return ds, true
}

func statusOf(err error) int {
	if objstore.IsNotExist(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
