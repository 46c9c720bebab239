package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/linkstash/internal/api"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var title, author, body string
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Store a URL",
		Long: `Submits a URL with optional metadata. Re-adding the same URL with the same
metadata returns the existing id; different metadata is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, p, err := clientAndPrinter(cmd, opts)
			if err != nil {
				return err
			}
			req := api.CreateContentRequest{URL: args[0]}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("author") {
				req.Author = &author
			}
			if cmd.Flags().Changed("body") {
				req.Body = &body
			}
			id, err := c.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			return p.Created(api.CreateContentResponse{ID: id})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "title of the content")
	cmd.Flags().StringVarP(&author, "author", "a", "", "author of the content")
	cmd.Flags().StringVarP(&body, "body", "b", "", "body text of the content")
	return cmd
}
