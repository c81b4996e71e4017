package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	datasetLogKey   = "dsdav_dataset"
	requestIDHeader = "X-Request-Id"
)

func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqid := c.GetHeader(requestIDHeader)
		if len(reqid) == 0 {
			reqid = uuid.NewString()
		}
		c.Header(requestIDHeader, reqid)
		c.Next()
		logutil.GetLogger(c.Request.Context()).Info("access",
			zap.String("request_id", reqid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.String("dataset", c.GetString(datasetLogKey)),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", time.Since(start)),
		)
	}
}
