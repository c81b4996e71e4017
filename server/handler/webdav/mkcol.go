package webdav

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
)

func (h *WebdavHandler) handleMkcol(c *gin.Context) {
	ctx := c.Request.Context()
	dir, err := h.buildSrcPath(c)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("build src path failed, err:%w", err))
		return
	}
	if len(dir) == 0 {
		httpkit.Fail(c, http.StatusMethodNotAllowed, fmt.Errorf("dataset root always exists"))
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	if err := ds.MakeCollection(ctx, dir); err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("make collection failed, dir:%s, err:%w", dir, err))
		return
	}
	ds.Invalidate(ctx, pathkit.Parent(dir))
	c.Status(http.StatusCreated)
}
