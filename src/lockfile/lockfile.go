package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"
	"github.com/nightlyone/lockfile"
	log "github.com/sirupsen/logrus"
)

const LOCKFILE_NAME = ".anonymizer.lck"

// ErrDataDirBusy is returned by Lock when another process holds the data dir.
var ErrDataDirBusy = errors.New("another instance of yb-table-anonymizer is running on this data-dir")

type Lockfile struct {
	fpath    string
	ownerPID int
	lockfile lockfile.Lockfile
}

// NewDataDirLockfile returns the lock guarding dataDir. The lock is not taken.
func NewDataDirLockfile(dataDir string) (*Lockfile, error) {
	fpath, err := filepath.Abs(filepath.Join(dataDir, LOCKFILE_NAME))
	if err != nil {
		return nil, fmt.Errorf("get absolute path for lockfile in %q: %w", dataDir, err)
	}
	return &Lockfile{fpath: fpath, ownerPID: -1}, nil
}

func (l *Lockfile) Path() string {
	return l.fpath
}

func (l *Lockfile) GetOwnerPID() (int, error) {
	if l.ownerPID != -1 {
		return l.ownerPID, nil
	}

	bytes, err := os.ReadFile(l.fpath)
	if err != nil {
		return -1, fmt.Errorf("failed to read lockfile %q: %w", l.fpath, err)
	}
	l.ownerPID, err = strconv.Atoi(strings.Trim(string(bytes), " \n"))
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID from lockfile %q: %w", l.fpath, err)
	}
	return l.ownerPID, nil
}

func (l *Lockfile) IsPIDActive() bool {
	pid, err := l.GetOwnerPID()
	if err != nil {
		return false
	}

	proc, err := ps.FindProcess(pid)
	if err != nil || proc == nil {
		log.Infof("process %d is not active", pid)
		return false
	}
	log.Infof("process %d (%s) is active", pid, proc.Executable())
	return true
}

func (l *Lockfile) Lock() error {
	var err error
	l.lockfile, err = lockfile.New(l.fpath)
	if err != nil {
		return fmt.Errorf("create lockfile %q: %w", l.fpath, err)
	}

	err = l.lockfile.TryLock()
	if err == nil {
		log.Infof("locked %q", l.fpath)
		return nil
	} else if errors.Is(err, lockfile.ErrBusy) {
		return ErrDataDirBusy
	}
	return fmt.Errorf("lock %q: %w", l.fpath, err)
}

func (l *Lockfile) Unlock() error {
	err := l.lockfile.Unlock()
	if err != nil {
		return fmt.Errorf("unlock %q: %w", l.fpath, err)
	}
	return nil
}
