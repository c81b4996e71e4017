package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/dsdav/auth"
	"github.com/xxxsen/dsdav/server/handler/webdav"
	"github.com/xxxsen/dsdav/server/middleware"
	"go.uber.org/zap"
)

const (
	defaultShutdownTimeout = 10 * time.Second
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Server struct {
	c      *config
	bind   string
	engine *gin.Engine
}

func New(bind string, opts ...Option) (*Server, error) {
	c := applyOpts(opts...)
	if c.factory == nil {
		return nil, fmt.Errorf("no dataset factory found")
	}
	svr := &Server{c: c, bind: bind}
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery(), middleware.AccessLogMiddleware())
	svr.initAPI(&engine.RouterGroup)
	svr.engine = engine
	return svr, nil
}

func (s *Server) initAPI(router *gin.RouterGroup) {
	var tokenfn auth.TokenQueryFunc
	if len(s.c.tokens) > 0 {
		tokenfn = auth.MapTokenMatch(s.c.tokens)
	} else {
		logutil.GetLogger(context.Background()).Warn("no dataset token configured, credentials are passed through unchecked")
	}
	webdavRouter := router.Group(s.c.webdavRoot,
		middleware.DatasetAuthMiddleware(s.c.realm, tokenfn, s.c.factory),
		middleware.NonLengthIOLimitMiddleware(s.c.maxBodySize),
	)
	{
		webdavHandler := webdav.NewWebdavHandler(webdavRouter.BasePath(), s.c.maxBodySize)
		for _, method := range webdav.AllowMethods {
			webdavRouter.Handle(method, "/*all", webdavHandler.Handler)
		}
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:    s.bind,
		Handler: s.engine,
	}
	errCh := make(chan error, 1)
	go func() {
		logutil.GetLogger(ctx).Info("webdav server start listening", zap.String("bind", s.bind), zap.String("root", s.c.webdavRoot))
		errCh <- hs.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logutil.GetLogger(ctx).Info("shutting down webdav server")
	sctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown server failed, err:%w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
