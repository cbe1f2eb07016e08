package main

import (
	"fmt"

	"github.com/jrsnow/timewalk/pkg/fsutil"
	"github.com/jrsnow/timewalk/pkg/restore"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/spf13/cobra"
)

var (
	restorePreserve    bool
	restoreOwner       string
	restoreAuditDriver string
	restoreAuditPath   string
	restoreLatest      bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-path|live-path> <destination>",
	Short: "Copy a snapshot version of a file back to a live location",
	Long: `Restore copies snapshotPath (typically a path printed by "timewalk list")
onto destination. Every restore is logged to the restore audit log.

With --latest, the first argument is instead a live path, and restore looks
up and copies its newest available snapshot version.`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolVar(&restorePreserve, "preserve", true,
		"preserve mode, ownership, timestamps and xattrs (cp -a) instead of a plain copy")
	restoreCmd.Flags().StringVar(&restoreOwner, "owner", "",
		"chown the restored path to UID:GID after copying")
	restoreCmd.Flags().StringVar(&restoreAuditDriver, "audit-driver", "sqlite",
		"restore audit log driver: sqlite or postgres")
	restoreCmd.Flags().StringVar(&restoreAuditPath, "audit-sqlite-path", "timewalk-restores.db",
		"sqlite file path for the restore audit log")
	restoreCmd.Flags().BoolVar(&restoreLatest, "latest", false,
		"treat the first argument as a live path and restore its newest snapshot version")
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	snapshotPath, destination := args[0], args[1]

	owner, err := fsutil.ParseOwner(restoreOwner)
	if err != nil {
		return fmt.Errorf("parsing --owner: %w", err)
	}

	if restoreLatest {
		inv, _, err := buildInventory(ctx)
		if err != nil {
			return err
		}

		rec, err := versions.Latest(ctx, snapshotPath, inv)
		if err != nil {
			return fmt.Errorf("finding latest version of %q: %w", snapshotPath, err)
		}

		snapshotPath = rec.Path
	}

	var auditCfg restore.DatabaseConfig
	auditCfg.Driver = restoreAuditDriver
	auditCfg.SQLite.Path = restoreAuditPath

	audit := restore.NewAuditLog(log, auditCfg)
	if err := audit.Start(ctx); err != nil {
		return fmt.Errorf("starting restore audit log: %w", err)
	}

	defer func() {
		if err := audit.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop restore audit log")
		}
	}()

	copier := restore.NewLocalCopier(log)

	if err := restore.RecordingRestore(ctx, copier, audit, snapshotPath, destination, restorePreserve); err != nil {
		return fmt.Errorf("restoring %q to %q: %w", snapshotPath, destination, err)
	}

	if owner != nil {
		fsutil.Chown(destination, owner)
	}

	log.WithField("destination", destination).Info("Restore complete")

	return nil
}
