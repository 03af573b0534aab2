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

package repo

import (
	"bufio"
	"io"

	"github.com/spf13/afero"
)

// FileSource reads an image file from the repository.
func NewFileSource(fs afero.Fs, file string) (*FileSource, error) {
	f, err := fs.Open(file)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		file:   f,
		reader: bufio.NewReader(io.LimitReader(f, MaxSourceSize)),
	}, nil
}

//
type FileSource struct {
	file   afero.File
	reader io.Reader
}

//
func (fs *FileSource) Read(p []byte) (n int, err error) {
	return fs.reader.Read(p)
}

//
func (fs *FileSource) Close() error {
	return fs.file.Close()
}
