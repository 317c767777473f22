package datachannel

import (
	"os"
	"testing"
)

func newTempFile(t *testing.T) (*os.File, error) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "datachannel-*")
	return f, err
}
