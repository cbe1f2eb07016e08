package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicyConfigDefaults(t *testing.T) {
	cfg, err := LoadPolicyConfig()
	require.NoError(t, err)
	assert.Equal(t, "metadata", cfg.Uniqueness)
	assert.Equal(t, "any", cfg.LastSnapMode)
	assert.Equal(t, 200, cfg.AutomountMinIntervalMillis)
}

func TestLoadPolicyConfigMergesFiles(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(base, []byte(`
uniqueness: contents
filter_dirs:
  - .cache
  - .git
`), 0o644))

	override := filepath.Join(dir, "override.yaml")
	require.NoError(t, os.WriteFile(override, []byte(`
last_snap_mode: ditto_only
`), 0o644))

	cfg, err := LoadPolicyConfig(base, override)
	require.NoError(t, err)
	assert.Equal(t, "contents", cfg.Uniqueness)
	assert.Equal(t, "ditto_only", cfg.LastSnapMode)
	assert.ElementsMatch(t, []string{".cache", ".git"}, cfg.FilterDirs)
}

func TestLoadPolicyConfigExpandsEnv(t *testing.T) {
	t.Setenv("TIMEWALK_TEST_SNAPDIR", "/mnt/backup/.snaps")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
common_snap_dir: ${TIMEWALK_TEST_SNAPDIR}
worker_pool_size: ${TIMEWALK_TEST_WORKERS:-4}
`), 0o644))

	cfg, err := LoadPolicyConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/backup/.snaps", cfg.CommonSnapDir)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
}

func TestLoadPolicyConfigEnvVarOverride(t *testing.T) {
	t.Setenv("TIMEWALK_UNIQUENESS", "contents")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`uniqueness: metadata`), 0o644))

	cfg, err := LoadPolicyConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "contents", cfg.Uniqueness)
}

func TestLoadPolicyConfigPreservesAliasKeyCasing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
aliases:
  /mnt/Remote-NAS: /srv/nas-export
  /mnt/plain: /srv/plain-export
alternate_replicas:
  /tank/Pool-A:
    - /mnt/ReplicaOne
    - /mnt/replicatwo
`), 0o644))

	cfg, err := LoadPolicyConfig(path)
	require.NoError(t, err)

	require.Contains(t, cfg.Aliases, "/mnt/Remote-NAS")
	assert.Equal(t, "/srv/nas-export", cfg.Aliases["/mnt/Remote-NAS"])

	_, lowercased := cfg.Aliases["/mnt/remote-nas"]
	assert.False(t, lowercased, "alias key should not have been lowercased by viper")

	require.Contains(t, cfg.AlternateReplicas, "/tank/Pool-A")
	assert.Equal(t, []string{"/mnt/ReplicaOne", "/mnt/replicatwo"}, cfg.AlternateReplicas["/tank/Pool-A"])
}

func TestLoadPolicyConfigFileNotFound(t *testing.T) {
	_, err := LoadPolicyConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadPolicyConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := LoadPolicyConfig(path)
	require.Error(t, err)
}
