package webdav

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
)

func (h *WebdavHandler) handleGet(c *gin.Context) {
	ctx := c.Request.Context()
	file, ok := h.buildVisiblePath(c)
	if !ok {
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	data, err := ds.Read(ctx, file)
	if err != nil {
		httpkit.Fail(c, http.StatusNotFound, fmt.Errorf("read file failed, file:%s, err:%w", file, err))
		return
	}
	contentType := httpkit.DetermineMimeType(file, data)
	httpkit.SetDownloadHeader(c, pathkit.Base(file), int64(len(data)), contentType)
	httpkit.SetETag(c, data)
	c.Data(http.StatusOK, contentType, data)
}
