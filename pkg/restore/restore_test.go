package restore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsnow/timewalk/pkg/paths"
	"github.com/jrsnow/timewalk/pkg/restore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCopier struct {
	called bool
}

func (f *fakeCopier) Restore(_ context.Context, _, _ string, _ bool) error {
	f.called = true

	return nil
}

func TestRestoreRejectsSameFile(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	c := &fakeCopier{}

	err := restore.Restore(context.Background(), c, p, p, true)
	require.Error(t, err)

	var pathErr *paths.Error
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, paths.KindBadInput, pathErr.Kind)
	assert.False(t, c.called)
}

func TestRestoreDelegatesToCopier(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	c := &fakeCopier{}

	require.NoError(t, restore.Restore(context.Background(), c, src, dst, true))
	assert.True(t, c.called)
}

func TestLocalCopierRestoresFileContents(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "nested", "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	log := logrus.New()
	log.SetOutput(os.Stderr)

	c := restore.NewLocalCopier(log)

	require.NoError(t, restore.Restore(context.Background(), c, src, dst, true))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}
