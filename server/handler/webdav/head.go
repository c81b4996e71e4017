package webdav

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
)

func (h *WebdavHandler) handleHead(c *gin.Context) {
	ctx := c.Request.Context()
	file, ok := h.buildVisiblePath(c)
	if !ok {
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	item, err := ds.Stat(ctx, file)
	if err != nil {
		httpkit.Fail(c, http.StatusNotFound, fmt.Errorf("stat file failed, file:%s, err:%w", file, err))
		return
	}
	contentType := httpkit.DetermineMimeType(file, nil)
	if item.IsDir() {
		contentType = dirContentType
	}
	mtime := item.ModTime
	if mtime.IsZero() {
		mtime = time.Now()
	}
	httpkit.SetDownloadHeader(c, pathkit.Base(file), item.Size, contentType)
	c.Writer.Header().Set("Last-Modified", httpkit.FormatTime(mtime))
	c.Status(http.StatusOK)
}
