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
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"testing"

	"github.com/spf13/afero"
)

//
func gzipData(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := gzip.NewWriter(buf)
	w.Name = name
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

//
func zipData(t *testing.T, data []byte, names ...string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, n := range names {
		f, err := w.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

//
func TestSplitNameTypeCompressor(t *testing.T) {

	tests := []struct {
		file             string
		name, typ, compr string
	}{
		{"game.d64", "game", "d64", ""},
		{"/repo/disks/Game.D64.GZ", "Game", "d64", "gz"},
		{"boot.d81.zip", "boot", "d81", "zip"},
		{"tapes.7z", "tapes", "", "7z"},
		{"side.a.tap", "side.a", "tap", ""},
		{"readme.txt", "readme.txt", "", ""},
		{"noext", "noext", "", ""},
	}

	for _, tt := range tests {
		n, typ, c := SplitNameTypeCompressor(tt.file)
		if n != tt.name || typ != tt.typ || c != tt.compr {
			t.Errorf("%s: want %s, %s, %s, got %s, %s, %s",
				tt.file, tt.name, tt.typ, tt.compr, n, typ, c)
		}
	}
}

//
func TestKindOf(t *testing.T) {
	for typ, want := range map[string]Kind{
		"d64": KindDisk, "d81": KindFloppy, "img": KindFloppy,
		"tap": KindTape, "wav": KindTape, "p4t": KindTape, "prg": KindUnknown,
	} {
		if k := KindOf(typ); k != want {
			t.Errorf("%s: want %s, got %s", typ, want, k)
		}
	}
}

//
func TestReaderGZip(t *testing.T) {

	data := []byte("disk data")
	in := ioutil.NopCloser(bytes.NewReader(gzipData(t, "Game.d64", data)))

	r, err := NewReader(in, "gz")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Name() != "Game" || r.Type() != "d64" || r.Compressor() != "gzip" {
		t.Errorf("unexpected reader: %s, %s, %s", r.Name(), r.Type(), r.Compressor())
	}
	if got, _ := io.ReadAll(r); !bytes.Equal(got, data) {
		t.Errorf("unexpected data: %s", got)
	}
}

//
func TestReaderZip(t *testing.T) {

	data := []byte("tape data")
	in := ioutil.NopCloser(bytes.NewReader(
		zipData(t, data, "tapes/Side A.tap", "tapes/Side B.tap")))

	r, err := NewReader(in, "zip")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Name() != "Side A" || r.Type() != "tap" || r.Compressor() != "zip" {
		t.Errorf("unexpected reader: %s, %s, %s", r.Name(), r.Type(), r.Compressor())
	}
	if got, _ := io.ReadAll(r); !bytes.Equal(got, data) {
		t.Errorf("unexpected data: %s", got)
	}
}

//
func TestReaderErrors(t *testing.T) {

	if _, err := NewReader(
		ioutil.NopCloser(bytes.NewReader(nil)), "rar"); err == nil {
		t.Error("unsupported compressor accepted")
	}
	if _, err := NewReader(
		ioutil.NopCloser(bytes.NewReader(zipData(t, nil))), "zip"); err == nil {
		t.Error("empty zip archive accepted")
	}
	if _, err := NewReader(ioutil.NopCloser(
		bytes.NewReader([]byte("no gzip"))), "gz"); err == nil {
		t.Error("invalid gzip data accepted")
	}
}

//
func TestLoad(t *testing.T) {

	fs := afero.NewMemMapFs()
	data := bytes.Repeat([]byte{0xA5}, 1000)

	afero.WriteFile(fs, "/img/plain.d64", data, 0644)
	afero.WriteFile(fs, "/img/packed.d64.gz", gzipData(t, "", data), 0644)
	afero.WriteFile(fs, "/img/boot.zip", zipData(t, data, "Boot.D81"), 0644)

	tests := []struct {
		path     string
		name     string
		typ      string
		readOnly bool
	}{
		{"/img/plain.d64", "/img/plain.d64", "d64", false},
		{"/img/packed.d64.gz", "packed.d64", "d64", true},
		{"/img/boot.zip", "Boot.d81", "d81", true},
	}

	for _, tt := range tests {

		s, typ, err := Load(fs, tt.path, false)
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}

		if typ != tt.typ || s.Name() != tt.name || s.IsReadOnly() != tt.readOnly {
			t.Errorf("%s: unexpected store %s, type %s, read-only %v",
				tt.path, s.Name(), typ, s.IsReadOnly())
		}

		got := make([]byte, len(data))
		if _, err := s.ReadAt(got, 0); err != nil || !bytes.Equal(got, data) {
			t.Errorf("%s: unexpected contents, %v", tt.path, err)
		}
		s.Close()
	}

	if _, _, err := Load(fs, "/img/missing.d64.gz", false); err == nil {
		t.Error("missing file loaded")
	}
}
