package inventory

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"
)

// commonSnapperRoots are the snapshot root directory names this discoverer
// checks for beneath a btrfs mountpoint, in order, when the mount's fstype
// doesn't otherwise tell us which convention is in use.
var commonSnapperRoots = []string{".snapshots", "@snapshots"}

// Discover walks the host's mounted filesystems via gopsutil and builds a
// best-effort Inventory: every ZFS mountpoint with an existing
// .zfs/snapshot directory, and every btrfs mountpoint with a recognizable
// snapshot root. It is the reference dataset-inventory builder this module
// ships; any other way of producing an *Inventory (a YAML fixture, a
// hand-built map in tests) is equally valid input to pkg/dataset.
func Discover(ctx context.Context, log logrus.FieldLogger) (*Inventory, error) {
	partitions, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	datasets := make(map[string]Dataset)

	for _, p := range partitions {
		ds, ok := classify(log, p)
		if !ok {
			continue
		}

		datasets[ds.Mountpoint] = ds
	}

	log.WithField("datasets", len(datasets)).Info("Discovered snapshot-bearing datasets")

	return New(datasets, nil, nil, "", NewFilterDirs(nil)), nil
}

// classify inspects a single mounted partition and decides whether it is a
// dataset this module can list snapshots for, returning the populated
// Dataset and true, or a zero value and false for anything else. Mount
// points are taken from gopsutil rather than shelling out to list datasets
// directly.
func classify(log logrus.FieldLogger, p disk.PartitionStat) (Dataset, bool) {
	switch p.Fstype {
	case "zfs":
		return classifyZFS(p)
	case "btrfs":
		return classifyBtrfs(log, p)
	default:
		return Dataset{}, false
	}
}

func classifyZFS(p disk.PartitionStat) (Dataset, bool) {
	snapDir := filepath.Join(p.Mountpoint, ".zfs", "snapshot")

	if _, err := os.Stat(snapDir); err != nil {
		return Dataset{}, false
	}

	return Dataset{
		Name:        p.Device,
		Mountpoint:  p.Mountpoint,
		FSType:      Zfs,
		SnapshotDir: snapDir,
		Source:      p.Device,
		LinkType:    classifyLinkType(p),
	}, true
}

func classifyBtrfs(log logrus.FieldLogger, p disk.PartitionStat) (Dataset, bool) {
	for _, root := range commonSnapperRoots {
		snapDir := filepath.Join(p.Mountpoint, root)
		if _, err := os.Stat(snapDir); err == nil {
			log.WithFields(logrus.Fields{
				"mountpoint": p.Mountpoint,
				"snapshot_dir": snapDir,
			}).Debug("Classified btrfs-snapper dataset")

			return Dataset{
				Name:        p.Device,
				Mountpoint:  p.Mountpoint,
				FSType:      BtrfsSnapper,
				SnapshotDir: snapDir,
				Source:      p.Device,
				LinkType:    classifyLinkType(p),
			}, true
		}
	}

	return Dataset{}, false
}

// classifyLinkType flags a partition as network-backed when its fstype
// names a network filesystem, so the auto-mount memo in pkg/versions
// knows to prime it before a first read.
func classifyLinkType(p disk.PartitionStat) LinkType {
	switch {
	case strings.HasPrefix(p.Fstype, "nfs"),
		p.Fstype == "cifs",
		p.Fstype == "smbfs",
		p.Fstype == "fuse.sshfs":
		return LinkNetwork
	default:
		return LinkLocal
	}
}
