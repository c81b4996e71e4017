package webdav

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
)

func (h *WebdavHandler) handleDelete(c *gin.Context) {
	ctx := c.Request.Context()
	root, err := h.buildSrcPath(c)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("build src path failed, err:%w", err))
		return
	}
	if len(root) == 0 {
		httpkit.Fail(c, http.StatusForbidden, fmt.Errorf("delete dataset root is not allowed"))
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	if err := ds.RecursiveDelete(ctx, root); err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("remove path failed, path:%s, err:%w", root, err))
		return
	}
	ds.Invalidate(ctx, pathkit.Parent(root))
	c.Status(http.StatusNoContent)
}
