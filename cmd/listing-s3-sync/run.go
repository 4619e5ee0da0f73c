package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/manifest"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/publish"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/syncer"
)

// jobConfig is the scheduled job's configuration, read from the environment.
type jobConfig struct {
	Sync     syncer.Config
	APIURL   string
	APIS3Key string
}

func loadJobConfig(getenv func(string) string) (jobConfig, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	bucket := env("S3_BUCKET", "")
	if bucket == "" {
		return jobConfig{}, errors.New("S3_BUCKET is required")
	}
	baseURL := env("LISTING_BASE_URL", "")
	if baseURL == "" {
		return jobConfig{}, errors.New("LISTING_BASE_URL is required")
	}
	prefix := env("S3_PREFIX", "")
	if strings.Trim(prefix, "/") == "" {
		return jobConfig{}, errors.New("S3_PREFIX is required; refusing to mirror into the bucket root")
	}

	policy, err := planner.ParsePolicy(env("SYNC_POLICY", string(planner.PolicySizeGated)))
	if err != nil {
		return jobConfig{}, err
	}

	cfg := jobConfig{
		Sync: syncer.Config{
			BaseURL:       baseURL,
			Bucket:        bucket,
			Prefix:        prefix,
			Timeout:       60 * time.Second,
			Policy:        policy,
			Grammar:       manifest.GrammarAuto,
			UserAgent:     env("LISTING_USER_AGENT", source.ToolUserAgent),
			FailurePolicy: executor.FailFast,
		},
		APIURL:   env("API_URL", ""),
		APIS3Key: env("API_S3_KEY", ""),
	}
	if cfg.APIURL != "" && cfg.APIS3Key == "" {
		return jobConfig{}, errors.New("API_S3_KEY is required when API_URL is set")
	}
	return cfg, cfg.Sync.Validate()
}

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync and publish as configured by the environment",
		Long: `run is the scheduled-job entrypoint. It reads S3_BUCKET, S3_PREFIX,
LISTING_BASE_URL, LISTING_USER_AGENT and SYNC_POLICY for the sync, then
stores API_URL at API_S3_KEY when API_URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadJobConfig(os.Getenv)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			client, err := g.s3Client(ctx)
			if err != nil {
				return err
			}
			log := g.logger(cmd.ErrOrStderr())

			report, err := syncer.NewEngine(cfg.Sync, client, nil, log).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Summary())

			if cfg.APIURL == "" {
				return nil
			}
			p := publish.NewPublisher(client, source.NewClient(30*time.Second, cfg.Sync.UserAgent), publish.WithLogger(log))
			res, err := p.Publish(ctx, cfg.APIURL, cfg.Sync.Bucket, cfg.APIS3Key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "publish: wrote %d bytes to %s\n", res.Bytes, formatS3Path(res.Bucket, res.Key))
			return nil
		},
	}
}
