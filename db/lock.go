package db

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

type LockedError struct {
	Dir string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("database in use: %s", e.Dir)
}

// Lock takes an exclusive flock on the db, so that only one process
// appends to the chain at a time.  It does not wait.
func (db *Db) Lock() (unlock func() error, err error) {
	fh, err := os.OpenFile(filepath.Join(db.Dir, "lock"), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return
	}
	err = syscall.Flock(int(fh.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK {
		fh.Close()
		return nil, &LockedError{Dir: db.Dir}
	}
	if err != nil {
		fh.Close()
		return
	}
	unlock = func() error {
		// closing the descriptor drops the lock
		return fh.Close()
	}
	return
}
