package httpkit

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/pathkit"
	"github.com/xxxsen/dsdav/utils"
	"go.uber.org/zap"
)

const (
	defaultMimeType = "application/octet-stream"
)

// Fail logs err and aborts the request with a bare status code.
func Fail(c *gin.Context, code int, err error) {
	logutil.GetLogger(c.Request.Context()).Error("request failed", zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path), zap.Int("code", code), zap.Error(err))
	c.AbortWithStatus(code)
}

// DetermineMimeType 优先基于扩展名判断, 无法判断时再基于内容探测
func DetermineMimeType(filename string, data []byte) string {
	if mimeType := mime.TypeByExtension(path.Ext(filename)); mimeType != "" {
		return mimeType
	}
	if len(data) == 0 {
		return defaultMimeType
	}
	return mimetype.Detect(data).String()
}

func SetDavHeader(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("DAV", "1,2")
	h.Set("MS-Author-Via", "DAV")
	h.Set("Cache-Control", "no-cache")
}

func SetDownloadHeader(c *gin.Context, name string, size int64, contentType string) {
	h := c.Writer.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	h.Set("Content-Disposition", "attachment; filename*=UTF-8''"+pathkit.EncodeSegment(name))
	h.Set("Accept-Ranges", "bytes")
}

func SetETag(c *gin.Context, data []byte) {
	c.Writer.Header().Set("ETag", utils.ContentETag(data))
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
