package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const DefaultFilePerm os.FileMode = 0644

type Closer func() error

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// OpenFile opens path for reading. A missing file is reported with an error
// satisfying os.IsNotExist.
func OpenFile(path string) (*os.File, Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return f, f.Close, nil
}

// OpenAppend opens path for appending, creating it when absent.
func OpenAppend(path string, perm os.FileMode) (*os.File, Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open %s for append", path)
	}

	return f, f.Close, nil
}

func FileSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "could not collect file %s stats", f.Name())
	}

	return info.Size(), nil
}

// WriteAndSwap replaces the contents of path with b. The data goes into a
// temporary file next to path which is synced and renamed over path, so a
// failure at any step leaves the old file intact.
func WriteAndSwap(path string, b []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpF, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "could not create tmp file in %s", dir)
	}

	tmpName := tmpF.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := tmpF.Write(b)
	if err != nil {
		_ = tmpF.Close()
		return errors.Wrapf(err, "could not write to tmp file %s", tmpName)
	}

	if n != len(b) {
		_ = tmpF.Close()
		return errors.Errorf("short write to tmp file %s: %d of %d bytes", tmpName, n, len(b))
	}

	if err := tmpF.Chmod(perm); err != nil {
		_ = tmpF.Close()
		return errors.Wrapf(err, "could not chmod tmp file %s", tmpName)
	}

	if err := tmpF.Sync(); err != nil {
		_ = tmpF.Close()
		return errors.Wrapf(err, "could not sync tmp file %s", tmpName)
	}

	if err := tmpF.Close(); err != nil {
		return errors.Wrapf(err, "could not close tmp file %s", tmpName)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "could not replace %s with %s", path, tmpName)
	}
	renamed = true

	syncDir(dir)

	return nil
}

// syncDir makes the rename durable. Errors are ignored, not every
// platform supports syncing a directory.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
