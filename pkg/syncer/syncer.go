// Package syncer runs one reconciliation of a remote directory listing into
// an S3 prefix: fetch, parse, list, plan, execute.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/lister"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/manifest"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
)

type Config struct {
	// BaseURL is the listing page. File URLs are BaseURL + "/" + name.
	BaseURL string
	Bucket  string
	Prefix  string
	// Timeout bounds each HTTP request to the source.
	Timeout       time.Duration
	Policy        planner.Policy
	Grammar       string
	UserAgent     string
	Excludes      []string
	FailurePolicy executor.FailurePolicy
	DryRun        bool
}

// Validate checks the fields a run cannot do without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("listing URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("listing URL must be http(s): %q", c.BaseURL)
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("destination bucket is required")
	}
	if _, err := planner.ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if _, err := manifest.GrammarByName(c.Grammar); err != nil {
		return err
	}
	if _, err := executor.ParseFailurePolicy(string(c.FailurePolicy)); err != nil {
		return err
	}
	return nil
}

// Source is the remote side of a run.
type Source interface {
	FetchListing(ctx context.Context, url string) (string, error)
	executor.Downloader
}

var _ Source = (*source.Client)(nil)

type Engine struct {
	cfg    Config
	client s3client.Client
	source Source
	logger logger.Logger
}

// NewEngine wires a run. A nil src gets a source.Client built from the
// config's timeout and user agent; a nil log discards events.
func NewEngine(cfg Config, client s3client.Client, src Source, log logger.Logger) *Engine {
	if src == nil {
		src = source.NewClient(cfg.Timeout, cfg.UserAgent)
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Engine{
		cfg:    cfg,
		client: client,
		source: src,
		logger: log,
	}
}

type Report struct {
	Stats   executor.Stats
	Plan    planner.Plan
	Grammar string
	DryRun  bool
}

// Summary is the one-line outcome of a run.
func (r Report) Summary() string {
	return fmt.Sprintf("sync: source=%d dest=%d uploaded=%d deleted=%d",
		r.Stats.SourceCount, r.Stats.DestinationCountBefore, r.Stats.Uploaded, r.Stats.Deleted)
}

// Plan fetches both sides and computes what a run would do, without
// executing anything. Any failure before the plan exists aborts with no
// mutation.
func (e *Engine) Plan(ctx context.Context) (manifest.Manifest, lister.Listing, planner.Plan, string, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, nil, planner.Plan{}, "", err
	}

	markup, err := e.source.FetchListing(ctx, e.cfg.BaseURL)
	if err != nil {
		return nil, nil, planner.Plan{}, "", errors.Errorf("fetching listing: %w", err)
	}

	src, grammar, err := e.parse(markup)
	if err != nil {
		return nil, nil, planner.Plan{}, "", err
	}
	e.logger.Debug(fmt.Sprintf("parsed %d entries with grammar %s", len(src), grammar))

	dest, err := lister.List(ctx, e.client, e.cfg.Bucket, e.cfg.Prefix)
	if err != nil {
		return nil, nil, planner.Plan{}, "", err
	}
	e.logger.Debug(fmt.Sprintf("destination holds %d objects", len(dest)))

	policy, _ := planner.ParsePolicy(string(e.cfg.Policy))
	plan, err := planner.Compute(src, dest, planner.Options{
		Policy:   policy,
		Prefix:   e.cfg.Prefix,
		Excludes: e.cfg.Excludes,
	})
	if err != nil {
		return nil, nil, planner.Plan{}, "", err
	}
	return src, dest, plan, grammar, nil
}

// Run performs one full reconciliation.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	src, dest, plan, grammar, err := e.Plan(ctx)
	if err != nil {
		return Report{}, err
	}

	failurePolicy, _ := executor.ParseFailurePolicy(string(e.cfg.FailurePolicy))
	exec := executor.NewExecutor(e.client, e.source, e.logger, executor.Config{
		BaseURL:       e.cfg.BaseURL,
		Bucket:        e.cfg.Bucket,
		Prefix:        e.cfg.Prefix,
		FailurePolicy: failurePolicy,
		DryRun:        e.cfg.DryRun,
	})

	stats, err := exec.Execute(ctx, plan, src)
	stats.DestinationCountBefore = len(dest)

	report := Report{Stats: stats, Plan: plan, Grammar: grammar, DryRun: e.cfg.DryRun}
	e.logger.Summary(report.Summary(), stats.BytesUploaded, stats.Duration)
	return report, err
}

func (e *Engine) parse(markup string) (manifest.Manifest, string, error) {
	g, err := manifest.GrammarByName(e.cfg.Grammar)
	if err != nil {
		return nil, "", err
	}
	if g != nil {
		m, err := manifest.Parse(markup, g)
		if err != nil {
			return nil, "", err
		}
		return m, g.Name(), nil
	}

	m, g, err := manifest.ParseAuto(markup)
	if err != nil {
		return nil, "", err
	}
	return m, g.Name(), nil
}
