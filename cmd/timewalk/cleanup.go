package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jrsnow/timewalk/pkg/versions"
	"github.com/spf13/cobra"
)

var forceCleanup bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clear the process-lifetime network auto-mount cache",
	Long: `Cleanup clears the memo of which network-backed datasets have already
been primed for auto-mount. This only matters for a long-lived "timewalk
serve" process -- a one-shot CLI invocation never accumulates enough
entries for it to matter.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVarP(&forceCleanup, "force", "f", false, "skip confirmation prompt")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	mounts := versions.AutomountedDatasets()

	if len(mounts) == 0 {
		log.Info("No automounted datasets cached")

		return nil
	}

	fmt.Printf("\nCached automounted datasets to be cleared (%d):\n", len(mounts))

	for _, m := range mounts {
		fmt.Printf("  - %s\n", m)
	}

	fmt.Println()

	if !forceCleanup {
		fmt.Print("Are you sure you want to clear the automount cache? [y/N] ")

		reader := bufio.NewReader(os.Stdin)

		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			log.Info("Cleanup cancelled")

			return nil
		}
	}

	versions.ResetAutomountCache()

	log.Info("Automount cache cleared")

	return nil
}
