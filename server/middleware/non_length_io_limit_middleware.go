package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/server/httpkit"
	"go.uber.org/zap"
)

const (
	defaultMaxAllowChunkStreamLength = 5 * 1024 * 1024 //5MB
)

// NonLengthIOLimitMiddleware buffers chunked bodies so handlers always see a
// known Content-Length, limit <= 0 uses the default.
func NonLengthIOLimitMiddleware(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = defaultMaxAllowChunkStreamLength
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength >= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		logutil.GetLogger(ctx).Debug("recv non-content-length io request")
		if len(c.Request.TransferEncoding) == 0 || c.Request.TransferEncoding[0] != "chunked" {
			httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("only chunked encoding can use content-length = -1"))
			return
		}
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
		if err != nil {
			httpkit.Fail(c, http.StatusBadRequest, fmt.Errorf("read client data failed, err:%w", err))
			return
		}
		logutil.GetLogger(ctx).Debug("read chunk stream from client", zap.Int("length", len(data)))
		if int64(len(data)) > limit {
			httpkit.Fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("chunk stream exceed length limit"))
			return
		}
		r := bytes.NewReader(data)
		clr := c.Request.Body
		rc := &readCloserWrap{
			r: r,
			c: clr,
		}
		c.Request.Body = rc
		c.Request.ContentLength = int64(len(data))
	}
}

type readCloserWrap struct {
	r io.Reader
	c io.Closer
}

func (c *readCloserWrap) Read(p []byte) (n int, err error) {
	return c.r.Read(p)
}

func (c *readCloserWrap) Close() error {
	return c.c.Close()
}
