package webdav

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
	"go.uber.org/zap"
)

func (h *WebdavHandler) readBody(c *gin.Context) ([]byte, int, error) {
	body := c.Request.Body
	if h.maxBodySize > 0 {
		if c.Request.ContentLength > h.maxBodySize {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("body size:%d exceed limit:%d", c.Request.ContentLength, h.maxBodySize)
		}
		body = http.MaxBytesReader(c.Writer, body, h.maxBodySize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceed limit:%d", mbe.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("read body failed, err:%w", err)
	}
	return data, http.StatusOK, nil
}

func (h *WebdavHandler) handlePut(c *gin.Context) {
	ctx := c.Request.Context()
	file, err := h.buildSrcPath(c)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("build src path failed, err:%w", err))
		return
	}
	if len(file) == 0 {
		httpkit.Fail(c, http.StatusMethodNotAllowed, fmt.Errorf("put on dataset root"))
		return
	}
	ds, ok := h.mustGetDataset(c)
	if !ok {
		return
	}
	data, code, err := h.readBody(c)
	if err != nil {
		httpkit.Fail(c, code, err)
		return
	}
	if err := ds.EnsureParentDirs(ctx, file); err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("ensure parent dirs failed, file:%s, err:%w", file, err))
		return
	}
	if err := ds.Write(ctx, file, data); err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("write file failed, file:%s, err:%w", file, err))
		return
	}
	ds.Invalidate(ctx, pathkit.Parent(file))
	logutil.GetLogger(ctx).Debug("file uploaded", zap.String("file", file), zap.Int("size", len(data)))
	c.Status(http.StatusCreated)
}
