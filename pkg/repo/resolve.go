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
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// MaxSourceSize limits how much is read from an image source. Sound files
// make up the largest images.
const MaxSourceSize = 256 * 1024 * 1024

const schemeRepo = "repo"

// IsRepoRef tells whether ref points to a file in the repository.
func IsRepoRef(ref string) bool {
	return strings.HasPrefix(ref, schemeRepo+"://")
}

/*
	ResolvePath turns a reference of the form repo://{path} into the path of the
	referenced file on the file system. The path is taken as relative to the
	repository directory and must not lead out of it.
*/
func ResolvePath(ref, repository string) (string, error) {

	if repository == "" {
		return "", fmt.Errorf("no repository configured")
	}
	if !IsRepoRef(ref) {
		return "", fmt.Errorf("not a repository reference: %s", ref)
	}

	rel := path.Clean("/" + strings.TrimPrefix(ref, schemeRepo+"://"))
	if rel == "/" {
		return "", fmt.Errorf("no file in repository reference: %s", ref)
	}

	return filepath.Join(repository, filepath.FromSlash(rel)), nil
}

/*
	Resolve opens the image referenced by ref. Supported references are
	repo://{path} for files in the repository, and http:// or https:// URLs.
	Besides the reader, the file name of the image is returned, which tells
	image type and compressor.
*/
func Resolve(fs afero.Fs, ref, repository string) (io.ReadCloser, string,
	error) {

	if IsRepoRef(ref) {
		p, err := ResolvePath(ref, repository)
		if err != nil {
			return nil, "", err
		}
		src, err := NewFileSource(fs, p)
		if err != nil {
			return nil, "", err
		}
		return src, filepath.Base(p), nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, "", err
	}

	switch u.Scheme {
	case "http", "https":
		src, err := NewHTTPSource(ref)
		if err != nil {
			return nil, "", err
		}
		return src, path.Base(u.Path), nil
	}

	return nil, "", fmt.Errorf("unsupported reference: %s", ref)
}
