// Package analytics loads the mirrored series file and the published
// population document back out of the bucket and answers three questions:
// population mean and spread over a year range, each series' best year,
// and one series joined to population by year.
package analytics

import (
	"context"
	"io"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
)

const (
	DefaultSeriesKey     = "raw/bls/pr.data.0.Current"
	DefaultPopulationKey = "raw/datausa/population.json"
)

type Options struct {
	FromYear int
	ToYear   int
	SeriesID string
	Period   string
}

func DefaultOptions() Options {
	return Options{
		FromYear: 2013,
		ToYear:   2018,
		SeriesID: "PRS30006032",
		Period:   "Q01",
	}
}

type Report struct {
	Population Stats
	BestYears  []SeriesYear
	Joined     []JoinedRow
}

type Analyzer struct {
	client s3client.Client
	logger logger.Logger
	opts   Options
}

func NewAnalyzer(client s3client.Client, log logger.Logger, opts Options) *Analyzer {
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Analyzer{client: client, logger: log, opts: opts}
}

// Run loads both objects concurrently and evaluates every query.
func (a *Analyzer) Run(ctx context.Context, bucket, seriesKey, populationKey string) (Report, error) {
	var (
		obs []Observation
		pop []Population
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		obs, err = load(gctx, a.client, bucket, seriesKey, LoadSeries)
		return err
	})
	g.Go(func() error {
		var err error
		pop, err = load(gctx, a.client, bucket, populationKey, LoadPopulation)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	a.logger.Debug("loaded series and population objects")

	stats, err := PopulationStats(pop, a.opts.FromYear, a.opts.ToYear)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Population: stats,
		BestYears:  BestYears(obs),
		Joined:     JoinPopulation(obs, pop, a.opts.SeriesID, a.opts.Period),
	}, nil
}

func load[T any](ctx context.Context, client s3client.Client, bucket, key string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	body, err := client.GetObject(ctx, &s3client.GetObjectRequest{Bucket: bucket, Key: key})
	if err != nil {
		return nil, errors.Errorf("getting s3://%s/%s: %w", bucket, key, err)
	}
	defer body.Close()

	out, err := parse(body)
	if err != nil {
		return nil, errors.Errorf("parsing s3://%s/%s: %w", bucket, key, err)
	}
	return out, nil
}
