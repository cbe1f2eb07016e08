package versions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsnow/timewalk/pkg/inventory"
	"github.com/jrsnow/timewalk/pkg/paths"
	"golang.org/x/time/rate"
)

// automounted is the process-lifetime memo of which network-backed
// datasets have already been primed with a first read, so repeated lookups
// never pay the auto-mount cost twice.
var (
	automountMu sync.RWMutex
	automounted = make(map[string]struct{})
)

// automountLimiter throttles priming reads against network datasets so a
// sweep across many slow NFS/SMB-backed datasets doesn't open them all in
// the same instant. It is additive to the correctness of auto-mount
// priming: every network dataset is still primed exactly once, just not
// all at once.
var automountLimiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

// ConfigureAutomountRateLimit adjusts the minimum interval between priming
// reads. Intended to be called once at startup from the loaded PolicyConfig.
func ConfigureAutomountRateLimit(minInterval time.Duration) {
	automountMu.Lock()
	defer automountMu.Unlock()

	automountLimiter = rate.NewLimiter(rate.Every(minInterval), 1)
}

// AutomountedDatasets lists the mountpoints currently recorded as primed,
// so a long-lived process can report what "timewalk cleanup" is about to
// clear before clearing it.
func AutomountedDatasets() []string {
	automountMu.RLock()
	defer automountMu.RUnlock()

	out := make([]string, 0, len(automounted))
	for mount := range automounted {
		out = append(out, mount)
	}

	return out
}

// ResetAutomountCache clears the memo. Meaningful only for a long-lived
// process (the "serve" HTTP mode); a one-shot CLI invocation never
// accumulates enough entries for this to matter.
func ResetAutomountCache() {
	automountMu.Lock()
	defer automountMu.Unlock()

	automounted = make(map[string]struct{})
}

// PrimeNetworkDataset opens (and reads one entry from) a network-backed
// dataset's snapshot directory the first time it's seen, which is often
// what triggers an autofs/automounter to actually mount the remote share.
// Local datasets are a no-op. Safe for concurrent callers: only the first
// to observe a dataset as unprimed performs the read. Exported so
// pkg/deleted, which reads the same snapshot directories to diff against
// live entries, pays the same once-per-dataset priming cost version
// lookup does.
func PrimeNetworkDataset(ctx context.Context, ds inventory.Dataset) error {
	if ds.LinkType == inventory.LinkLocal {
		return nil
	}

	automountMu.RLock()
	_, done := automounted[ds.Mountpoint]
	automountMu.RUnlock()

	if done {
		return nil
	}

	automountMu.Lock()
	defer automountMu.Unlock()

	if _, done := automounted[ds.Mountpoint]; done {
		return nil
	}

	if err := automountLimiter.Wait(ctx); err != nil {
		return err
	}

	f, err := openDirNoFollow(ds.SnapshotDir)
	if err != nil {
		return paths.NewError(paths.KindIoError, ds.SnapshotDir, err)
	}

	defer func() { _ = f.Close() }()

	_, _ = f.Readdirnames(1)

	automounted[ds.Mountpoint] = struct{}{}

	return nil
}
