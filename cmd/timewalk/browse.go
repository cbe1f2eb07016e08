package main

import (
	"fmt"
	"time"

	"github.com/jrsnow/timewalk/pkg/recurse"
	"github.com/jrsnow/timewalk/pkg/sink"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/spf13/cobra"
)

var (
	browseRecursive    bool
	browseDeleted      string
	browseLinkTraverse bool
)

var browseCmd = &cobra.Command{
	Use:   "browse <dir>",
	Short: "Walk a directory, printing live entries plus any deleted siblings",
	Long: `Browse runs the recursive enumerator over dir, streaming both the live
directory tree and (when enabled) deleted entries reconstructed from
snapshot history, to stdout as they are found.`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().BoolVarP(&browseRecursive, "recursive", "r", false, "descend into subdirectories")
	browseCmd.Flags().BoolVar(&browseLinkTraverse, "follow-symlinks", false,
		"treat a symlink to a directory as a directory for recursion")
	browseCmd.Flags().StringVar(&browseDeleted, "deleted", "disabled",
		"deleted-discovery mode: disabled, depth-one, enabled, or only")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]

	inv, cfg, err := buildInventory(ctx)
	if err != nil {
		return err
	}

	deletedMode, err := recurse.ParseDeletedMode(browseDeleted)
	if err != nil {
		return err
	}

	versions.ConfigureAutomountRateLimit(time.Duration(cfg.AutomountMinIntervalMillis) * time.Millisecond)

	rcfg := recurse.Config{
		Recursive:      browseRecursive,
		LinkTraversal:  browseLinkTraverse,
		DeletedMode:    deletedMode,
		WorkerPoolSize: cfg.WorkerPoolSize,
	}

	snk := sink.NewUnboundedSink()

	errCh := make(chan error, 1)

	go func() {
		errCh <- recurse.Recurse(ctx, log, dir, inv, snk, rcfg)
		snk.Close()
	}()

	for item := range snk.Items() {
		marker := " "
		if item.Phantom {
			marker = "D"
		}

		kind := "f"
		if item.Entry.IsDir() {
			kind = "d"
		}

		fmt.Printf("[%s%s] %s\n", marker, kind, item.Entry.Path)
	}

	return <-errCh
}
