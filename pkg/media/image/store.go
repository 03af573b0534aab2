/*
   Plus4Drive - Commodore disk & tape media emulator
   Copyright (c) 2022, Alexander Vollschwitz

   This file is part of Plus4Drive.

   Plus4Drive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   Plus4Drive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with Plus4Drive. If not, see <http://www.gnu.org/licenses/>.
*/

package image

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	log "github.com/sirupsen/logrus"
)

// ErrHostIO is matched by every error caused by the host file system, as
// opposed to faults simulated on the emulated media.
var ErrHostIO = errors.New("host I/O error")

// ErrInvalidGeometry signals that the size or layout of an image file does not
// fit the media it is supposed to contain.
var ErrInvalidGeometry = errors.New("invalid image geometry")

//
type IOError struct {
	Op   string
	Path string
	Err  error
}

//
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

//
func (e *IOError) Unwrap() error {
	return e.Err
}

//
func (e *IOError) Is(target error) bool {
	return target == ErrHostIO
}

// Store is the handle through which emulated media access their image file.
// A Store exclusively owns the underlying file.
type Store interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Name returns the name of the underlying file
	Name() string

	// Size returns the current size of the image in bytes
	Size() (int64, error)

	// Sync commits written data to the underlying file
	Sync() error

	// Truncate changes the size of the underlying file
	Truncate(size int64) error

	//
	IsReadOnly() bool
}

// Open opens the image file at path. If read-write access is requested but
// not possible, the file is opened read-only instead. Use IsReadOnly on the
// returned store to find out which mode is in effect.
func Open(fs afero.Fs, path string, readOnly bool) (Store, error) {

	logger := log.WithFields(log.Fields{"path": path, "readonly": readOnly})

	if !readOnly {
		if f, err := fs.OpenFile(path, os.O_RDWR, 0); err == nil {
			logger.Debug("image opened")
			return NewStore(f, false), nil
		} else if errors.Is(err, os.ErrNotExist) {
			return nil, &IOError{Op: "open", Path: path, Err: err}
		}
		logger.Debug("cannot open image read-write, trying read-only")
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	logger.WithField("readonly", true).Debug("image opened")
	return NewStore(f, true), nil
}

// Create creates a new, empty image file at path, truncating any existing
// file.
func Create(fs afero.Fs, path string) (Store, error) {
	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	log.WithField("path", path).Debug("image created")
	return NewStore(f, false), nil
}

// NewMemStore creates a store backed by an in-memory file holding a copy of
// data.
func NewMemStore(name string, data []byte, readOnly bool) (Store, error) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, name, data, 0644); err != nil {
		return nil, &IOError{Op: "create", Path: name, Err: err}
	}
	f, err := fs.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, &IOError{Op: "open", Path: name, Err: err}
	}
	return NewStore(f, readOnly), nil
}

//
func NewStore(f afero.File, readOnly bool) Store {
	return &fileStore{file: f, readOnly: readOnly}
}

//
type fileStore struct {
	file     afero.File
	readOnly bool
}

//
func (s *fileStore) Name() string {
	return s.file.Name()
}

//
func (s *fileStore) IsReadOnly() bool {
	return s.readOnly
}

//
func (s *fileStore) Size() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return -1, &IOError{Op: "stat", Path: s.Name(), Err: err}
	}
	return info.Size(), nil
}

// ReadAt reads len(p) bytes at offset off. Reads that come up short are
// reported with io.EOF or io.ErrUnexpectedEOF, wrapped in an IOError.
func (s *fileStore) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.file.ReadAt(p, off)
	if n == len(p) {
		return n, nil
	}
	if err == nil || err == io.EOF && n > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, &IOError{Op: "read", Path: s.Name(), Err: err}
}

//
func (s *fileStore) WriteAt(p []byte, off int64) (int, error) {
	if s.readOnly {
		return 0, &IOError{Op: "write", Path: s.Name(), Err: os.ErrPermission}
	}
	n, err := s.file.WriteAt(p, off)
	if err != nil {
		return n, &IOError{Op: "write", Path: s.Name(), Err: err}
	}
	if n < len(p) {
		return n, &IOError{Op: "write", Path: s.Name(), Err: io.ErrShortWrite}
	}
	return n, nil
}

//
func (s *fileStore) Sync() error {
	if s.readOnly {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return &IOError{Op: "sync", Path: s.Name(), Err: err}
	}
	return nil
}

//
func (s *fileStore) Truncate(size int64) error {
	if s.readOnly {
		return &IOError{Op: "truncate", Path: s.Name(), Err: os.ErrPermission}
	}
	if err := s.file.Truncate(size); err != nil {
		return &IOError{Op: "truncate", Path: s.Name(), Err: err}
	}
	return nil
}

//
func (s *fileStore) Close() error {
	log.WithField("path", s.Name()).Debug("closing image")
	if err := s.file.Close(); err != nil {
		return &IOError{Op: "close", Path: s.Name(), Err: err}
	}
	return nil
}
