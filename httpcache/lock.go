package httpcache

import (
	"os"
	"syscall"
)

// fileLock is an advisory exclusive lock over a single cache file's write
// path (§4.2 "Concurrency"). It wraps syscall.Flock directly rather than
// pulling in a cross-platform locking library: solvent's cache directory
// is only ever shared between cooperating solvent processes on the same
// Unix host, the deployment target the rest of this stack (a-h/kv's
// sqlite/rqlite backends, the installer's prefix layout) already assumes.
type fileLock struct {
	f *os.File
}

// lockPath opens (creating if necessary) path and takes an exclusive
// advisory lock, blocking until it is available.
func lockPath(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	return l.f.Close()
}
