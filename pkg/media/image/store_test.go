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
	"io"
	"os"
	"testing"

	"github.com/spf13/afero"
)

//
func TestOpenReadWrite(t *testing.T) {

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "disk.d64", []byte("0123456789"), 0644)

	s, err := Open(fs, "disk.d64", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.IsReadOnly() {
		t.Error("writable image opened read-only")
	}

	if _, err := s.WriteAt([]byte("ab"), 3); err != nil {
		t.Fatal(err)
	}
	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := s.Truncate(6); err != nil {
		t.Fatal(err)
	}
	if size, err := s.Size(); err != nil || size != 6 {
		t.Errorf("want size 6, got %d, %v", size, err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if data, _ := afero.ReadFile(fs, "disk.d64"); string(data) != "012ab5" {
		t.Errorf("unexpected image contents: %s", data)
	}
}

//
func TestOpenFallsBackToReadOnly(t *testing.T) {

	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "disk.d64", []byte("0123"), 0644)

	s, err := Open(afero.NewReadOnlyFs(mem), "disk.d64", false)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if !s.IsReadOnly() {
		t.Fatal("image on read-only file system opened read-write")
	}

	_, err = s.WriteAt([]byte("x"), 0)
	if !errors.Is(err, ErrHostIO) || !errors.Is(err, os.ErrPermission) {
		t.Errorf("unexpected write error: %v", err)
	}
	if err := s.Truncate(0); !errors.Is(err, os.ErrPermission) {
		t.Errorf("unexpected truncate error: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Errorf("sync of read-only image failed: %v", err)
	}
}

//
func TestOpenMissing(t *testing.T) {

	_, err := Open(afero.NewMemMapFs(), "nothere.d64", false)

	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "open" ||
		ioErr.Path != "nothere.d64" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, ErrHostIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error does not match: %v", err)
	}
}

//
func TestShortRead(t *testing.T) {

	s, err := NewMemStore("short.d64", []byte{1, 2, 3}, true)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	p := make([]byte, 4)
	n, err := s.ReadAt(p, 1)
	if n != 2 || !errors.Is(err, io.ErrUnexpectedEOF) || !errors.Is(err, ErrHostIO) {
		t.Errorf("unexpected short read: %d, %v", n, err)
	}

	n, err = s.ReadAt(p, 3)
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("unexpected read past end: %d, %v", n, err)
	}

	if n, err = s.ReadAt(p[:2], 0); n != 2 || err != nil {
		t.Errorf("unexpected read: %d, %v", n, err)
	}
}

//
func TestCreate(t *testing.T) {

	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "tape.p4t", []byte("old contents"), 0644)

	s, err := Create(fs, "tape.p4t")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if size, _ := s.Size(); size != 0 || s.IsReadOnly() {
		t.Errorf("unexpected new image, size %d, read-only %v",
			size, s.IsReadOnly())
	}
}

//
func TestSectorStore(t *testing.T) {

	if _, err := NewSectorStore(nil, 0); err == nil {
		t.Error("zero sector size accepted")
	}

	s, err := NewMemStore("floppy.img", make([]byte, 5*512+100), false)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ss, err := NewSectorStore(s, 512)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := ss.Count(); n != 5 || err != nil {
		t.Errorf("want 5 sectors, got %d, %v", n, err)
	}

	sector := make([]byte, 512)
	for i := range sector {
		sector[i] = byte(i)
	}
	if err := ss.WriteSector(3, sector); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 600)
	if err := ss.ReadSector(3, got); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 512; i++ {
		if got[i] != byte(i) {
			t.Fatalf("byte %d: want %d, got %d", i, byte(i), got[i])
		}
	}

	if err := ss.ReadSector(-1, got); err == nil {
		t.Error("negative sector index accepted")
	}
	if err := ss.ReadSector(0, got[:100]); err == nil {
		t.Error("short sector buffer accepted")
	}
	if err := ss.ReadSector(5, got); !errors.Is(err, ErrHostIO) {
		t.Errorf("reading incomplete sector: %v", err)
	}
}
