package ingest

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrEmptyFile is returned by OpenUpload for a zero-byte file
var ErrEmptyFile = errors.New("file is empty")

// Upload is an uploaded file on local disk. It is read once by an import
// and removed when the import completes.
type Upload struct {
	path string
	f    *os.File
	once sync.Once
	err  error
}

// OpenUpload opens the file at path for reading. A zero-byte file is rejected
// with ErrEmptyFile and removed immediately.
func OpenUpload(path string) (*Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat upload %s", path)
	}
	if info.IsDir() {
		return nil, errors.Newf("upload %s is a directory", path)
	}
	if info.Size() == 0 {
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, errors.WithSecondaryError(ErrEmptyFile, rmErr)
		}
		return nil, ErrEmptyFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open upload %s", path)
	}
	return &Upload{path: path, f: f}, nil
}

// Path returns the location of the upload on disk
func (u *Upload) Path() string {
	return u.path
}

// Read implements io.Reader
func (u *Upload) Read(p []byte) (int, error) {
	return u.f.Read(p)
}

// Close releases the file handle without removing the file
func (u *Upload) Close() error {
	return u.f.Close()
}

// Remove closes the upload and deletes it from disk. Safe to call more than once.
func (u *Upload) Remove() error {
	u.once.Do(func() {
		_ = u.f.Close()
		if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
			u.err = errors.Wrapf(err, "remove upload %s", u.path)
		}
	})
	return u.err
}
