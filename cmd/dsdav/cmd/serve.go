package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/dsdav/config"
	"github.com/xxxsen/dsdav/dataset"
	"github.com/xxxsen/dsdav/objstore"
	"github.com/xxxsen/dsdav/objstore/cache"
	_ "github.com/xxxsen/dsdav/objstore/register"
	"github.com/xxxsen/dsdav/server"
	"go.uber.org/zap"
)

func NewServeCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webdav server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return onRunServe(ctx, c.Config)
		},
	}
}

func buildObjectStore(c *config.Config) (objstore.IObjectStore, error) {
	st, err := objstore.Create(c.Store.Kind, c.Store.Config)
	if err != nil {
		return nil, fmt.Errorf("init object store failed, kind:%s, err:%w", c.Store.Kind, err)
	}
	if !c.Cache.Enable {
		return st, nil
	}
	cst, err := cache.New(st,
		cache.WithListTTL(c.Cache.ListTTL),
		cache.WithListSize(c.Cache.ListSize),
		cache.WithStatSize(c.Cache.StatSize),
		cache.WithBodyCache(c.Cache.BodyCacheSize, c.Cache.BodyKeySizeLimit),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("wrap object store cache failed, err:%w", err)
	}
	return cst, nil
}

func onRunServe(ctx context.Context, c *config.Config) error {
	logitem := c.LogInfo
	logger := logger.Init(logitem.File, logitem.Level, logitem.FileCount, logitem.FileSize, logitem.KeepDays, logitem.Console)
	logger.Info("current available object store", zap.Strings("list", objstore.List()))
	logger.Info("current use object store impl", zap.String("name", c.Store.Kind))
	logger.Info("current webdav config", zap.String("root", c.Webdav.Root), zap.String("realm", c.Webdav.Realm),
		zap.String("max_body_size", humanize.IBytes(uint64(c.Webdav.MaxBodySize))), zap.Int("dataset_token_count", len(c.Datasets)))
	logger.Info("current cache config")
	logger.Info("-- list/stat cache", zap.Bool("enable", c.Cache.Enable), zap.Duration("ttl", c.Cache.ListTTL),
		zap.Int("list_size", c.Cache.ListSize), zap.Int("stat_size", c.Cache.StatSize))
	logger.Info("-- body cache", zap.String("max_cache_mem_usage", humanize.IBytes(uint64(c.Cache.BodyCacheSize))),
		zap.String("key_size_limit", humanize.IBytes(uint64(c.Cache.BodyKeySizeLimit))))
	st, err := buildObjectStore(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close object store failed", zap.Error(err))
		}
	}()
	svr, err := server.New(c.Bind,
		server.WithDatasetFactory(dataset.StoreFactory(st)),
		server.WithTokens(c.TokenTable()),
		server.WithWebdav(c.Webdav.Root, c.Webdav.Realm),
		server.WithMaxBodySize(c.Webdav.MaxBodySize),
	)
	if err != nil {
		return fmt.Errorf("init server failed, err:%w", err)
	}
	logger.Info("init server succ, start it...")
	return svr.Run(ctx)
}

func init() {
	register(NewServeCmd)
}
