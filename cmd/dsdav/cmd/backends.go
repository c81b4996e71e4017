package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/dsdav/objstore"
	_ "github.com/xxxsen/dsdav/objstore/register"
)

func NewBackendsCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List available object store kinds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range objstore.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func init() {
	register(NewBackendsCmd)
}
