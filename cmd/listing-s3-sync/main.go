package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/logger"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	profile    string
	region     string
	maxRetries int
	quiet      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "listing-s3-sync",
		Short: "Mirror a web directory listing into an S3 prefix",
		Long: `listing-s3-sync scrapes an HTML directory index, mirrors every listed file
into an S3 prefix and deletes objects the listing no longer names. An empty
or unparseable listing aborts the run before anything is deleted.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.profile, "profile", "", "AWS profile to use")
	rootCmd.PersistentFlags().StringVar(&g.region, "region", "", "AWS region (uses default if not specified)")
	rootCmd.PersistentFlags().IntVar(&g.maxRetries, "max-retries", 0, "Extra retries for throttled or 5xx S3 calls")
	rootCmd.PersistentFlags().BoolVar(&g.quiet, "quiet", false, "Suppress non-error output")

	rootCmd.AddCommand(
		newSyncCmd(g),
		newPublishCmd(g),
		newAnalyzeCmd(g),
		newRunCmd(g),
	)
	return rootCmd
}

func (g *globalFlags) s3Client(ctx context.Context) (*s3client.AWSClient, error) {
	var configOpts []func(*config.LoadOptions) error
	if g.profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(g.profile))
	}
	if g.region != "" {
		configOpts = append(configOpts, config.WithRegion(g.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, errors.Errorf("failed to load AWS config: %w", err)
	}
	return s3client.NewAWSClient(cfg, s3client.WithMaxRetries(g.maxRetries)), nil
}

func (g *globalFlags) logger(w io.Writer) *logger.SyncLogger {
	return logger.New(w, g.quiet)
}
