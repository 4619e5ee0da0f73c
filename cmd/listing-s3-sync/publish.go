package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/publish"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
)

type publishFlags struct {
	timeout   time.Duration
	userAgent string
	dryRun    bool
}

func newPublishCmd(g *globalFlags) *cobra.Command {
	f := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish <APIURL> <S3Uri>",
		Short: "Store a JSON API response as an S3 object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, err := s3client.ParseS3URI(args[1])
			if err != nil {
				return err
			}
			if key == "" {
				return errors.Errorf("S3 URI %q must name an object key", args[1])
			}

			client, err := g.s3Client(cmd.Context())
			if err != nil {
				return err
			}
			p := publish.NewPublisher(client, source.NewClient(f.timeout, f.userAgent),
				publish.WithLogger(g.logger(cmd.ErrOrStderr())),
				publish.WithDryRun(f.dryRun),
			)
			res, err := p.Publish(cmd.Context(), args[0], bucket, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "publish: wrote %d bytes to %s\n", res.Bytes, formatS3Path(res.Bucket, res.Key))
			return nil
		},
	}

	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "Timeout of the API request")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", source.ToolUserAgent, "User-Agent sent to the API")
	cmd.Flags().BoolVar(&f.dryRun, "dryrun", false, "Fetch and validate without writing")
	return cmd
}
