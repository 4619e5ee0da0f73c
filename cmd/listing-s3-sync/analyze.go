package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/analytics"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
)

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	opts := analytics.DefaultOptions()
	var sample int

	cmd := &cobra.Command{
		Use:   "analyze <SeriesS3Uri> <PopulationS3Uri>",
		Short: "Report on a mirrored series file joined with population data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seriesBucket, seriesKey, err := s3client.ParseS3URI(args[0])
			if err != nil {
				return err
			}
			popBucket, popKey, err := s3client.ParseS3URI(args[1])
			if err != nil {
				return err
			}
			if seriesBucket != popBucket {
				return errors.Errorf("both objects must live in one bucket, got %q and %q", seriesBucket, popBucket)
			}

			client, err := g.s3Client(cmd.Context())
			if err != nil {
				return err
			}
			report, err := analytics.NewAnalyzer(client, g.logger(cmd.ErrOrStderr()), opts).
				Run(cmd.Context(), seriesBucket, seriesKey, popKey)
			if err != nil {
				return err
			}
			printAnalyticsReport(cmd.OutOrStdout(), opts, report, sample)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.FromYear, "from-year", opts.FromYear, "First year of the population statistics")
	cmd.Flags().IntVar(&opts.ToYear, "to-year", opts.ToYear, "Last year of the population statistics")
	cmd.Flags().StringVar(&opts.SeriesID, "series-id", opts.SeriesID, "Series joined with population")
	cmd.Flags().StringVar(&opts.Period, "period", opts.Period, "Period joined with population")
	cmd.Flags().IntVar(&sample, "sample", 10, "Rows printed per table")
	return cmd
}

func printAnalyticsReport(w io.Writer, opts analytics.Options, report analytics.Report, sample int) {
	fmt.Fprintf(w, "population %d-%d: mean=%.0f std=%.2f (n=%d)\n",
		opts.FromYear, opts.ToYear, report.Population.Mean, report.Population.StdDev, report.Population.Count)

	fmt.Fprintf(w, "best years: %d series\n", len(report.BestYears))
	for i, row := range report.BestYears {
		if i == sample {
			break
		}
		fmt.Fprintf(w, "  %s\t%d\t%g\n", row.SeriesID, row.Year, row.Value)
	}

	fmt.Fprintf(w, "%s/%s joined with population: %d rows\n", opts.SeriesID, opts.Period, len(report.Joined))
	for i, row := range report.Joined {
		if i == sample {
			break
		}
		pop := "-"
		if row.Population != nil {
			pop = fmt.Sprintf("%.0f", *row.Population)
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\t%g\t%s\n", row.SeriesID, row.Year, row.Period, row.Value, pop)
	}
}
