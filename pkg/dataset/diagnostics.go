package dataset

import (
	"bufio"
	"context"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogProperties shells out to "zfs get all" for dataset and logs each
// property at debug level, one line per property. It's a read-only
// diagnostic aid for "why did this path resolve to that dataset" (SPEC_FULL
// supplemented feature 4) -- never required for correctness, and a failure
// to run zfs (not installed, dataset not actually ZFS) is logged and
// swallowed rather than propagated. Grounded on
// pkg/datadir/zfs.go's logDatasetProperties in the teacher repo.
func LogProperties(ctx context.Context, log logrus.FieldLogger, datasetName string) {
	//nolint:gosec // dataset name originates from the resolved inventory, not raw user input.
	cmd := exec.CommandContext(ctx, "zfs", "get", "all", "-H", datasetName)

	output, err := cmd.Output()
	if err != nil {
		log.WithError(err).WithField("dataset", datasetName).Debug("Could not read ZFS properties")

		return
	}

	log.WithField("dataset", datasetName).Debug("ZFS dataset properties")

	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 4 {
			continue
		}

		log.WithFields(logrus.Fields{
			"property": fields[1],
			"value":    fields[2],
			"source":   fields[3],
		}).Debug("zfs property")
	}
}
