package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jrsnow/timewalk/pkg/dataset"
	"github.com/jrsnow/timewalk/pkg/format"
	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/spf13/cobra"
)

var (
	listJSON         bool
	listUniqueness   string
	listOmitDitto    bool
	listLastSnapMode string
	listVerboseProps bool
)

var listCmd = &cobra.Command{
	Use:   "list [paths...]",
	Short: "List the live and snapshot versions of one or more paths",
	Long: `List resolves each given path's proximate dataset and prints every
version found in its snapshot history, oldest to newest, alongside the
live version (if any still exists).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print raw JSON instead of a table")
	listCmd.Flags().StringVar(&listUniqueness, "uniqueness", "",
		"version dedup mode: all, metadata, or contents (default from config, else metadata)")
	listCmd.Flags().BoolVar(&listOmitDitto, "omit-ditto", false,
		"drop a trailing snapshot version identical to the live version")
	listCmd.Flags().StringVar(&listLastSnapMode, "last-snap", "",
		"print only the representative snapshot under this mode instead of full history: "+
			"any, ditto-only, no-ditto-exclusive, no-ditto-inclusive, without")
	listCmd.Flags().BoolVarP(&listVerboseProps, "verbose", "v", false,
		"also log each path's resolved ZFS dataset properties, for diagnosing why it resolved where it did")
}

// logDatasetPropertiesFor resolves each requested path's proximate dataset
// and logs its ZFS properties at debug level when --verbose is set. A
// resolution failure here is swallowed: this is a diagnostic aid, not part
// of the lookup itself, and runList already reports lookup errors.
func logDatasetPropertiesFor(ctx context.Context, requested []string, inv *inventory.Inventory) {
	for _, p := range requested {
		rec, err := paths.NewRecord(p)
		if err != nil {
			continue
		}

		mount, err := dataset.New(rec, inv).ProximateDataset()
		if err != nil {
			continue
		}

		ds, ok := inv.MapOfDatasets[mount]
		if !ok || ds.FSType != inventory.Zfs {
			continue
		}

		dataset.LogProperties(ctx, log, ds.Name)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	inv, cfg, err := buildInventory(ctx)
	if err != nil {
		return err
	}

	uniquenessStr := listUniqueness
	if uniquenessStr == "" {
		uniquenessStr = cfg.Uniqueness
	}

	uniqueness, err := paths.ParseUniqueness(uniquenessStr)
	if err != nil {
		return err
	}

	versions.ConfigureAutomountRateLimit(time.Duration(cfg.AutomountMinIntervalMillis) * time.Millisecond)

	if listVerboseProps {
		logDatasetPropertiesFor(ctx, args, inv)
	}

	m, err := versions.NewMap(ctx, log, args, inv, uniqueness)
	if err != nil {
		return fmt.Errorf("looking up versions: %w", err)
	}

	if listOmitDitto {
		m.OmitDitto()
	}

	if listLastSnapMode != "" {
		return printLastSnap(m)
	}

	entries := format.BuildEntries(m)

	if listJSON {
		return format.VersionsJSON(os.Stdout, entries)
	}

	return format.VersionsTable(os.Stdout, entries)
}

func printLastSnap(m *versions.Map) error {
	mode, err := versions.ParseMode(listLastSnapMode)
	if err != nil {
		return err
	}

	results := m.LastSnap(mode)

	for _, key := range m.Keys() {
		recs := results[key]
		if len(recs) == 0 {
			continue
		}

		fmt.Printf("%s\n", key)

		for _, p := range recs {
			fmt.Printf("  %s\n", p)
		}
	}

	return nil
}
