package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/manifest"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/syncer"
)

type syncFlags struct {
	policy          string
	grammar         string
	timeout         time.Duration
	userAgent       string
	browserUA       bool
	excludes        []string
	failurePolicy   string
	dryRun          bool
	planJSONFile    string
	resultJSONFile  string
	allowBucketRoot bool
}

func newSyncCmd(g *globalFlags) *cobra.Command {
	f := &syncFlags{}

	cmd := &cobra.Command{
		Use:   "sync <ListingURL> <S3Uri>",
		Short: "Mirror the files of a directory listing into an S3 prefix",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, prefix, err := s3client.ParseS3URI(args[1])
			if err != nil {
				return err
			}
			cfg, err := f.config(args[0], bucket, prefix)
			if err != nil {
				return err
			}
			return runSync(cmd, g, cfg, f.planJSONFile, f.resultJSONFile)
		},
	}

	cmd.Flags().StringVar(&f.policy, "policy", string(planner.PolicyAlwaysRefresh), "Change detection: always-refresh or size-gated")
	cmd.Flags().StringVar(&f.grammar, "grammar", manifest.GrammarAuto, "Listing grammar: us-date, day-month or auto")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 60*time.Second, "Timeout of each HTTP request to the source")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", "", "User-Agent sent to the source (default: self-identifying)")
	cmd.Flags().BoolVar(&f.browserUA, "browser-ua", false, "Send a browser-like User-Agent")
	cmd.Flags().StringSliceVar(&f.excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	cmd.Flags().StringVar(&f.failurePolicy, "failure-policy", string(executor.FailFast), "On a failed file: fail-fast or skip-and-log")
	cmd.Flags().BoolVar(&f.dryRun, "dryrun", false, "Shows operations without executing")
	cmd.Flags().StringVar(&f.planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	cmd.Flags().StringVar(&f.resultJSONFile, "result-json-file", "", "Path to output result as JSON file")
	cmd.Flags().BoolVar(&f.allowBucketRoot, "allow-bucket-root", false, "Allow an S3Uri without a prefix (deletions then cover the whole bucket)")
	return cmd
}

func (f *syncFlags) config(listingURL, bucket, prefix string) (syncer.Config, error) {
	policy, err := planner.ParsePolicy(f.policy)
	if err != nil {
		return syncer.Config{}, err
	}
	failurePolicy, err := executor.ParseFailurePolicy(f.failurePolicy)
	if err != nil {
		return syncer.Config{}, err
	}
	if strings.Trim(prefix, "/") == "" && !f.allowBucketRoot {
		return syncer.Config{}, errors.Errorf("s3://%s has no prefix; refusing to mirror into the bucket root without --allow-bucket-root", bucket)
	}
	if f.browserUA && f.userAgent != "" {
		return syncer.Config{}, errors.New("--browser-ua and --user-agent are mutually exclusive")
	}

	userAgent := f.userAgent
	switch {
	case f.browserUA:
		userAgent = source.BrowserUserAgent
	case userAgent == "":
		userAgent = source.ToolUserAgent
	}

	cfg := syncer.Config{
		BaseURL:       listingURL,
		Bucket:        bucket,
		Prefix:        prefix,
		Timeout:       f.timeout,
		Policy:        policy,
		Grammar:       f.grammar,
		UserAgent:     userAgent,
		Excludes:      f.excludes,
		FailurePolicy: failurePolicy,
		DryRun:        f.dryRun,
	}
	return cfg, cfg.Validate()
}

func runSync(cmd *cobra.Command, g *globalFlags, cfg syncer.Config, planJSONFile, resultJSONFile string) error {
	ctx := cmd.Context()

	client, err := g.s3Client(ctx)
	if err != nil {
		return err
	}

	log := g.logger(cmd.ErrOrStderr())
	if cfg.DryRun {
		log = log.DryRun()
	}

	report, runErr := syncer.NewEngine(cfg, client, nil, log).Run(ctx)

	// A run that failed before planning has no plan to write.
	if planJSONFile != "" && (runErr == nil || report.Plan.Items != nil) {
		if err := writePlanResult(planJSONFile, cfg, report.Plan); err != nil {
			return errors.Errorf("failed to write plan JSON: %w", err)
		}
	}
	if resultJSONFile != "" && !cfg.DryRun && (runErr == nil || report.Plan.Items != nil) {
		if err := writeSyncResult(resultJSONFile, newSyncResult(report, runErr)); err != nil {
			return errors.Errorf("failed to write result JSON: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	return nil
}
