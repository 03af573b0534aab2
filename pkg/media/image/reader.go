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
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/spf13/afero"

	log "github.com/sirupsen/logrus"
)

// Kind tells which kind of emulated media an image file is meant for.
type Kind int

const (
	KindUnknown Kind = iota
	KindDisk         // GCR disk for 1541/1551 style drives
	KindFloppy       // MFM floppy with 512 byte sectors, for WD177x
	KindTape
)

//
func (k Kind) String() string {
	switch k {
	case KindDisk:
		return "disk"
	case KindFloppy:
		return "floppy"
	case KindTape:
		return "tape"
	}
	return "unknown"
}

// KindOf returns the media kind for an image type as returned by
// SplitNameTypeCompressor.
func KindOf(typ string) Kind {
	switch typ {
	case "d64":
		return KindDisk
	case "d81", "img", "ima":
		return KindFloppy
	case "tap", "wav", "mp3", "dat", "p4t":
		return KindTape
	}
	return KindUnknown
}

//
func NewReader(r io.ReadCloser, compressor string) (*Reader, error) {

	log.WithField("compressor", compressor).Debug("image reader requested")

	var ret *Reader
	var err error

	switch compressor {

	case "gzip":
		fallthrough
	case "gz":
		ret, err = getGZipReader(r)

	case "zip":
		ret, err = getZipReader(r, false)

	case "7z":
		ret, err = getZipReader(r, true)

	case "":
		ret = &Reader{r, "", "", ""}
	}

	if ret == nil && err == nil {
		err = fmt.Errorf("unsupported compressor: %s", compressor)
	}

	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"compressor": ret.compressor,
		"name":       ret.name,
		"type":       ret.typ}).Debug("image reader created")

	return ret, nil
}

// Reader reads an image file, transparently decompressing it if needed.
type Reader struct {
	readCloser io.ReadCloser
	//
	name       string
	typ        string
	compressor string
}

//
func (r *Reader) Read(p []byte) (n int, err error) {
	return r.readCloser.Read(p)
}

//
func (r *Reader) Close() error {
	return r.readCloser.Close()
}

//
func (r *Reader) Name() string {
	return r.name
}

//
func (r *Reader) Type() string {
	return r.typ
}

//
func (r *Reader) Compressor() string {
	return r.compressor
}

//
func getGZipReader(r io.ReadCloser) (*Reader, error) {

	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	ret := &Reader{readCloser: gzr}
	ret.name, ret.typ, _ = SplitNameTypeCompressor(gzr.Name)
	ret.compressor = "gzip"

	return ret, nil
}

//
func getZipReader(r io.ReadCloser, zip7 bool) (*Reader, error) {

	var sponge bytes.Buffer
	size, err := io.Copy(&sponge, r)
	if err != nil {
		return nil, err
	}
	r.Close()

	ret := &Reader{}

	if zip7 {
		zr, err := sevenzip.NewReader(bytes.NewReader(sponge.Bytes()), size)
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty 7-zip archive")
		}
		if len(zr.File) > 1 {
			log.Warn("7-zip archive has more than one entry, using first")
		}

		ret.name, ret.typ, _ = SplitNameTypeCompressor(zr.File[0].Name)
		ret.compressor = "7z"
		if ret.readCloser, err = zr.File[0].Open(); err != nil {
			return nil, err
		}

	} else {
		zr, err := zip.NewReader(bytes.NewReader(sponge.Bytes()), size)
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty zip archive")
		}
		if len(zr.File) > 1 {
			log.Warn("zip archive has more than one entry, using first")
		}

		ret.name, ret.typ, _ = SplitNameTypeCompressor(zr.File[0].Name)
		ret.compressor = "zip"
		if ret.readCloser, err = zr.File[0].Open(); err != nil {
			return nil, err
		}
	}

	return ret, nil
}

// SplitNameTypeCompressor splits an image file name into its base name, image
// type, and compressor, e.g. "game.d64.gz" yields "game", "d64", "gz".
func SplitNameTypeCompressor(file string) (name, typ, compressor string) {

	_, n := filepath.Split(file)

	for {
		ext := filepath.Ext(n)
		if ext == "" {
			name = n
			break
		}

		n = strings.TrimSuffix(n, ext)
		orig := ext
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))

		switch ext {

		case "d64", "d81", "img", "ima", "tap", "wav", "mp3", "dat", "p4t":
			if typ == "" {
				typ = ext
			}

		case "gz", "gzip", "zip", "7z":
			if compressor == "" {
				compressor = ext
			}

		default:
			name = n + orig
			return name, typ, compressor
		}
	}

	return name, typ, compressor
}

// Load opens the image file at path. Uncompressed images are opened in place.
// Compressed images are unpacked into memory and are always read-only. The
// returned type is the image type derived from the file name(s).
func Load(fs afero.Fs, path string, readOnly bool) (Store, string, error) {

	base, typ, comp := SplitNameTypeCompressor(path)

	if comp == "" {
		s, err := Open(fs, path, readOnly)
		return s, typ, err
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, "", &IOError{Op: "open", Path: path, Err: err}
	}

	rd, err := NewReader(ioutil.NopCloser(bufio.NewReader(f)), comp)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	defer f.Close()
	defer rd.Close()

	data, err := ioutil.ReadAll(rd)
	if err != nil {
		return nil, "", &IOError{Op: "decompress", Path: path, Err: err}
	}

	if rd.Type() != "" {
		typ = rd.Type()
	}

	name := rd.Name()
	if name == "" {
		name = base
	}
	if typ != "" && !strings.HasSuffix(name, "."+typ) {
		name = name + "." + typ
	}

	log.WithFields(log.Fields{
		"path": path, "name": name, "type": typ, "size": len(data),
	}).Info("loaded compressed image into memory, read-only")

	s, err := NewMemStore(name, data, true)
	return s, typ, err
}
