package dataset

import (
	"testing"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInventory() *inventory.Inventory {
	datasets := map[string]inventory.Dataset{
		"/tank/home": {
			Name:        "tank/home",
			Mountpoint:  "/tank/home",
			FSType:      inventory.Zfs,
			SnapshotDir: "/tank/home/.zfs/snapshot",
			Source:      "tank/home",
		},
		"/tank": {
			Name:       "tank",
			Mountpoint: "/tank",
			FSType:     inventory.Zfs,
			Source:     "tank",
		},
	}

	return inventory.New(datasets, map[string]string{
		"/mnt/alias": "/tank/home",
	}, nil, "", inventory.NewFilterDirs(nil))
}

func TestProximateDatasetPicksLongestMountpoint(t *testing.T) {
	inv := testInventory()
	rec := &paths.Record{Path: "/tank/home/user/file.txt"}

	d := New(rec, inv)

	mount, err := d.ProximateDataset()
	require.NoError(t, err)
	assert.Equal(t, "/tank/home", mount)

	rel, err := d.RelativePath(mount)
	require.NoError(t, err)
	assert.Equal(t, "user/file.txt", rel)
}

func TestProximateDatasetNoMatch(t *testing.T) {
	inv := testInventory()
	rec := &paths.Record{Path: "/var/log/syslog"}

	d := New(rec, inv)

	_, err := d.ProximateDataset()
	require.Error(t, err)

	var pathErr *paths.Error
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, paths.KindNoProximateDataset, pathErr.Kind)
}

func TestAliasResolution(t *testing.T) {
	inv := testInventory()
	rec := &paths.Record{Path: "/mnt/alias/docs/report.pdf"}

	d := New(rec, inv)

	mount, rel, ok := d.Alias()
	require.True(t, ok)
	assert.Equal(t, "/tank/home", mount)
	assert.Equal(t, "docs/report.pdf", rel)

	proximate, err := d.ProximateDataset()
	require.NoError(t, err)
	assert.Equal(t, "/tank/home", proximate)
}

func TestZfsSnapPathLiveRoundTrip(t *testing.T) {
	inv := testInventory()
	rec := &paths.Record{
		Path: "/tank/home/.zfs/snapshot/autosnap-2024-01-01/user/file.txt",
	}

	d := New(rec, inv)

	_, _, ok := d.Alias()
	assert.False(t, ok)

	live, err := d.LivePath()
	require.NoError(t, err)
	assert.Equal(t, "/tank/home/user/file.txt", live)

	fsType, err := d.FSType("")
	require.NoError(t, err)
	assert.Equal(t, inventory.Zfs, fsType)

	source, err := d.Source("")
	require.NoError(t, err)
	assert.Equal(t, "tank/home@autosnap-2024-01-01", source)
}
