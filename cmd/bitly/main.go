package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/sundayezeilo/bitly/internal/app"
)

func main() {
	c := newCLI(func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, os.Stderr)
	})

	if err := c.execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// appFactory builds the App once the command line has been parsed, so
// --help works without a configured token.
type appFactory func(context.Context) (*app.App, error)

type cli struct {
	root        *cobra.Command
	newApp      appFactory
	app         *app.App
	showMetrics bool
}

func newCLI(newApp appFactory) *cli {
	c := &cli{newApp: newApp}

	c.root = &cobra.Command{
		Use:           "bitly",
		Short:         "Command-line client for the Bitly v4 API",
		Long:          "Shorten, expand, update and inspect bitlinks. Configure with BITLY_ACCESS_TOKEN.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	c.root.PersistentFlags().BoolVar(&c.showMetrics, "metrics", false, "print request metrics to stderr when done")

	c.root.AddCommand(c.linkCmds()...)
	c.root.AddCommand(c.metricsCmds()...)

	return c
}

// execute runs the command line, then prints metrics and shuts the App down.
// Both happen whether or not the command failed.
func (c *cli) execute(ctx context.Context) error {
	err := c.root.ExecuteContext(ctx)
	if c.app == nil {
		return err
	}

	if c.showMetrics {
		if mErr := writeMetrics(c.root.ErrOrStderr(), c.app.Metrics); mErr != nil {
			err = errors.Join(err, mErr)
		}
	}
	if sErr := c.app.Shutdown(ctx); sErr != nil {
		err = errors.Join(err, sErr)
	}
	return err
}

// printJSON writes v indented, followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
