package main

import (
	"github.com/spf13/cobra"

	"github.com/sundayezeilo/bitly/bitlinks"
)

func (c *cli) linkCmds() []*cobra.Command {
	return []*cobra.Command{
		c.newShortenCmd(),
		c.newCreateCmd(),
		c.newExpandCmd(),
		c.newGetCmd(),
		c.newUpdateCmd(),
	}
}

func (c *cli) newShortenCmd() *cobra.Command {
	var domain, groupGUID string

	cmd := &cobra.Command{
		Use:   "shorten <long-url>",
		Short: "Convert a long URL to a bitlink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []bitlinks.ShortenOption
			if domain != "" {
				opts = append(opts, bitlinks.WithDomain(domain))
			}
			if groupGUID != "" {
				opts = append(opts, bitlinks.WithGroupGUID(groupGUID))
			}

			resp, err := c.app.Client.Bitlinks().Shorten(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "branded short domain")
	cmd.Flags().StringVar(&groupGUID, "group-guid", "", "group to create the bitlink in")
	return cmd
}

func (c *cli) newCreateCmd() *cobra.Command {
	var p bitlinks.CreateParams

	cmd := &cobra.Command{
		Use:   "create <long-url>",
		Short: "Create a bitlink with a title, tags and domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.LongURL = args[0]

			resp, err := c.app.Client.Bitlinks().Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&p.Domain, "domain", "", "branded short domain")
	cmd.Flags().StringVar(&p.Title, "title", "", "bitlink title")
	cmd.Flags().StringSliceVar(&p.Tags, "tag", nil, "tag to attach; repeatable")
	cmd.Flags().StringVar(&p.GroupGUID, "group-guid", "", "group to create the bitlink in")
	return cmd
}

func (c *cli) newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand <bitlink>",
		Short: "Resolve a bitlink to its long URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.app.Client.Bitlinks().Expand(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (c *cli) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <bitlink>",
		Short: "Retrieve a bitlink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.app.Client.Bitlinks().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (c *cli) newUpdateCmd() *cobra.Command {
	var (
		title    string
		archived bool
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "update <bitlink>",
		Short: "Update a bitlink; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{}
			if cmd.Flags().Changed("title") {
				fields["title"] = title
			}
			if cmd.Flags().Changed("archived") {
				fields["archived"] = archived
			}
			if cmd.Flags().Changed("tag") {
				fields["tags"] = tags
			}

			resp, err := c.app.Client.Bitlinks().Update(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().BoolVar(&archived, "archived", false, "archive or unarchive the bitlink")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace the tags; repeatable")
	return cmd
}
