package main

import (
	"fmt"
	"time"

	"github.com/jrsnow/timewalk/pkg/archive"
	"github.com/jrsnow/timewalk/pkg/format"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/spf13/cobra"
)

var (
	archiveBucket   string
	archivePrefix   string
	archiveRegion   string
	archiveEndpoint string
)

var archiveCmd = &cobra.Command{
	Use:   "archive <name> [paths...]",
	Short: "Look up versions for paths and upload the JSON export to S3",
	Long: `Archive runs the same version lookup as "timewalk list --json" and
uploads the result to S3-compatible storage under name, so a lookup run
against a transient host can be kept somewhere durable.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringVar(&archiveBucket, "bucket", "", "destination S3 bucket (required)")
	archiveCmd.Flags().StringVar(&archivePrefix, "prefix", "exports", "S3 key prefix")
	archiveCmd.Flags().StringVar(&archiveRegion, "region", "", "S3 region")
	archiveCmd.Flags().StringVar(&archiveEndpoint, "endpoint-url", "", "S3-compatible endpoint URL (for non-AWS backends)")
	_ = archiveCmd.MarkFlagRequired("bucket")
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name, requested := args[0], args[1:]

	inv, cfg, err := buildInventory(ctx)
	if err != nil {
		return err
	}

	uniqueness, err := paths.ParseUniqueness(cfg.Uniqueness)
	if err != nil {
		return err
	}

	versions.ConfigureAutomountRateLimit(time.Duration(cfg.AutomountMinIntervalMillis) * time.Millisecond)

	m, err := versions.NewMap(ctx, log, requested, inv, uniqueness)
	if err != nil {
		return fmt.Errorf("looking up versions: %w", err)
	}

	a, err := archive.NewArchiver(ctx, log, archive.Config{
		Bucket:      archiveBucket,
		Prefix:      archivePrefix,
		Region:      archiveRegion,
		EndpointURL: archiveEndpoint,
	})
	if err != nil {
		return fmt.Errorf("creating archiver: %w", err)
	}

	if err := a.Preflight(ctx); err != nil {
		return fmt.Errorf("S3 preflight check failed: %w", err)
	}

	if err := a.ExportVersions(ctx, name+".json", format.BuildEntries(m)); err != nil {
		return fmt.Errorf("uploading versions export: %w", err)
	}

	log.WithField("name", name).Info("Versions export uploaded")

	return nil
}
