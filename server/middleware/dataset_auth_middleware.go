package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/auth"
	"github.com/xxxsen/dsdav/dataset"
	"go.uber.org/zap"
)

// DatasetAuthMiddleware parses the basic credential, checks it against fn
// and binds the dataset into the request context. OPTIONS passes untouched.
func DatasetAuthMiddleware(realm string, fn auth.TokenQueryFunc, factory dataset.Factory) gin.HandlerFunc {
	challenge := fmt.Sprintf(`Basic realm="%s"`, realm)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			return
		}
		ctx := c.Request.Context()
		logger := logutil.GetLogger(ctx).With(zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
		cred, err := auth.ParseCredential(c.Request)
		if err == nil {
			err = auth.Verify(ctx, cred, fn)
		}
		if err != nil {
			logger.Debug("auth failed", zap.Error(err))
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		ds, err := factory(ctx, cred.Owner, cred.Dataset, cred.Token)
		if err != nil {
			logger.Error("bind dataset failed", zap.String("dataset", cred.DatasetID()), zap.Error(err))
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		logger.Debug("dataset auth succ", zap.String("dataset", cred.DatasetID()))
		c.Set(datasetLogKey, cred.DatasetID())
		c.Request = c.Request.WithContext(dataset.WithContext(ctx, ds))
	}
}
