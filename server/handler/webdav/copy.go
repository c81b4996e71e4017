package webdav

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
)

func (h *WebdavHandler) handleCopy(c *gin.Context) {
	ctx := c.Request.Context()
	src, dst, ok := h.buildTransferPath(c)
	if !ok {
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	if err := copyObject(ctx, ds, src, dst); err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("copy file failed, err:%w", err))
		return
	}
	ds.Invalidate(ctx, pathkit.Parent(dst))
	c.Status(http.StatusCreated)
}
