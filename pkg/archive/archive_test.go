package archive_test

import (
	"context"
	"os"
	"testing"

	"github.com/jrsnow/timewalk/pkg/archive"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewArchiverWithStaticCredentials(t *testing.T) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	a, err := archive.NewArchiver(context.Background(), log, archive.Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	require.NotNil(t, a)
}
