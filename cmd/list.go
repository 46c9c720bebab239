package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/linkstash/internal/client"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		listOpts     client.ListOptions
		since, until string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if listOpts.Since, err = parseTimeFlag("since", since); err != nil {
				return err
			}
			if listOpts.Until, err = parseTimeFlag("until", until); err != nil {
				return err
			}
			c, p, err := clientAndPrinter(cmd, opts)
			if err != nil {
				return err
			}
			page, err := c.List(cmd.Context(), listOpts)
			if err != nil {
				return err
			}
			return p.List(page)
		},
	}
	cmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "page size (server default 50, max 1000)")
	cmd.Flags().IntVar(&listOpts.Offset, "offset", 0, "items to skip")
	cmd.Flags().StringVar(&since, "since", "", "only items created at or after this RFC 3339 time")
	cmd.Flags().StringVar(&until, "until", "", "only items created at or before this RFC 3339 time")
	return cmd
}
