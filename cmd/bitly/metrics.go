package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sundayezeilo/bitly/bitlinks"
	"github.com/sundayezeilo/bitly/client"
)

// metricsFunc is a bitlinks.Service metrics method expression.
type metricsFunc func(s *bitlinks.Service, ctx context.Context, bitlink string, opts ...bitlinks.MetricsOption) (client.Response, error)

func (c *cli) metricsCmds() []*cobra.Command {
	return []*cobra.Command{
		c.newMetricsCmd("clicks", "Click counts per time unit", (*bitlinks.Service).Clicks),
		c.newMetricsCmd("clicks-summary", "Total clicks over the window", (*bitlinks.Service).ClicksSummary),
		c.newMetricsCmd("referrers", "Clicks grouped by referrer", (*bitlinks.Service).MetricsByReferrers),
		c.newMetricsCmd("referring-domains", "Clicks grouped by referring domain", (*bitlinks.Service).MetricsByReferringDomains),
		c.newMetricsCmd("countries", "Clicks grouped by country", (*bitlinks.Service).MetricsByCountries),
		c.newMetricsCmd("referrers-by-domain", "Referrers grouped by referring domain", (*bitlinks.Service).MetricsReferrersByDomain),
	}
}

func (c *cli) newMetricsCmd(use, short string, fetch metricsFunc) *cobra.Command {
	var (
		unit  string
		units int
		size  int
		until string
	)

	cmd := &cobra.Command{
		Use:   use + " <bitlink>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []bitlinks.MetricsOption{
				bitlinks.WithUnit(bitlinks.TimeUnit(unit)),
				bitlinks.WithUnits(units),
				bitlinks.WithSize(size),
			}
			if until != "" {
				t, err := time.Parse(time.RFC3339, until)
				if err != nil {
					return fmt.Errorf("invalid --until %q: %w", until, err)
				}
				opts = append(opts, bitlinks.WithUntil(t))
			}

			resp, err := fetch(c.app.Client.Bitlinks(), cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&unit, "unit", string(bitlinks.DefaultTimeUnit), "minute, hour, day, week or month")
	cmd.Flags().IntVar(&units, "units", bitlinks.DefaultUnits, "number of units; -1 for all")
	cmd.Flags().IntVar(&size, "size", bitlinks.DefaultSize, "number of rows")
	cmd.Flags().StringVar(&until, "until", "", "end of the window, RFC 3339")
	return cmd
}
