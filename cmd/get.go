package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one stored item including its body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			c, p, err := clientAndPrinter(cmd, opts)
			if err != nil {
				return err
			}
			item, err := c.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return p.Item(item)
		},
	}
}
