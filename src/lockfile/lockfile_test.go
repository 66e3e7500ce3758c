//go:build unit

package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAndUnlock(t *testing.T) {
	dataDir := t.TempDir()
	l, err := NewDataDirLockfile(dataDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, LOCKFILE_NAME), l.Path())

	require.NoError(t, l.Lock())
	pid, err := l.GetOwnerPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, l.IsPIDActive())

	require.NoError(t, l.Unlock())
	assert.NoFileExists(t, l.Path())
}

func TestLockHeldByAnotherProcess(t *testing.T) {
	dataDir := t.TempDir()
	// The parent of the test binary is alive for the duration of the test.
	ppid := os.Getppid()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, LOCKFILE_NAME), []byte(strconv.Itoa(ppid)+"\n"), 0644))

	l, err := NewDataDirLockfile(dataDir)
	require.NoError(t, err)
	err = l.Lock()
	assert.ErrorIs(t, err, ErrDataDirBusy)
}
