package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/dsdav/config"
)

const (
	defaultConfigFileEnv = "DSDAV_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	ConfigFile string
	Config     *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func (c *Context) loadConfig() error {
	f := c.ConfigFile
	if len(f) == 0 {
		f, _ = os.LookupEnv(defaultConfigFileEnv)
	}
	cfg, err := config.Parse(f)
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

func NewRoot() *cobra.Command {
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:           "dsdav",
		Short:         "WebDAV gateway over a flat dataset object store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "config file")
	return rootCmd
}
