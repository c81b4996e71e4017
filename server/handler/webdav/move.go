package webdav

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/dataset"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/server/httpkit"
	"go.uber.org/zap"
)

// buildTransferPath resolves src and dst of a MOVE/COPY, writing the failure
// status itself when it returns false.
func (h *WebdavHandler) buildTransferPath(c *gin.Context) (string, string, bool) {
	src, err := h.buildSrcPath(c)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("build src path failed, err:%w", err))
		return "", "", false
	}
	dst, err := h.tryBuildDstPath(c)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("build dst path failed, err:%w", err))
		return "", "", false
	}
	if src == dst {
		httpkit.Fail(c, http.StatusForbidden, fmt.Errorf("src and dst are the same, path:%s", src))
		return "", "", false
	}
	return src, dst, true
}

// copyObject reads src whole and writes it to dst, creating missing parents of dst.
func copyObject(ctx context.Context, ds *dataset.Dataset, src string, dst string) error {
	data, err := ds.Read(ctx, src)
	if err != nil {
		return fmt.Errorf("read src failed, src:%s, err:%w", src, err)
	}
	if err := ds.EnsureParentDirs(ctx, dst); err != nil {
		return fmt.Errorf("ensure parent dirs failed, dst:%s, err:%w", dst, err)
	}
	if err := ds.Write(ctx, dst, data); err != nil {
		return fmt.Errorf("write dst failed, dst:%s, err:%w", dst, err)
	}
	return nil
}

func (h *WebdavHandler) handleMove(c *gin.Context) {
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
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("move file failed, err:%w", err))
		return
	}
	if err := ds.Delete(ctx, src); err != nil {
		httpkit.Fail(c, http.StatusInternalServerError, fmt.Errorf("remove src after copy failed, src:%s, err:%w", src, err))
		return
	}
	ds.Invalidate(ctx, pathkit.Parent(src))
	ds.Invalidate(ctx, pathkit.Parent(dst))
	logutil.GetLogger(ctx).Debug("file moved", zap.String("src", src), zap.String("dst", dst))
	c.Status(http.StatusCreated)
}
