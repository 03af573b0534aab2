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

package control

import (
	"fmt"
	"io"
	"net/http"

	"github.com/xelalexv/plus4drive/pkg/media/image"
	"github.com/xelalexv/plus4drive/pkg/repo"
)

/*
	load returns the handler for loading an image into the drive for kind. The
	image is either referenced with the ref argument, as repo://{path} or as
	http(s) URL, or it is sent in the request body, with its file name given in
	the name argument. Images from the repository are loaded in place, all
	others into memory. For tapes, the create flag creates a new tape file in
	the repository.
*/
func (a *api) load(kind image.Kind) http.HandlerFunc {

	return func(w http.ResponseWriter, req *http.Request) {

		readOnly := isFlagSet(req, "readonly")
		ref := getArg(req, "ref")
		name := getArg(req, "name")

		if ref != "" {
			name = ref
		}
		if name == "" {
			handleError(fmt.Errorf("no image reference or name given"),
				http.StatusUnprocessableEntity, w)
			return
		}

		if _, typ, _ := image.SplitNameTypeCompressor(name); image.KindOf(
			typ) != kind {
			handleError(fmt.Errorf("'%s' is not a %s image", name, kind),
				http.StatusUnprocessableEntity, w)
			return
		}

		var err error

		switch {

		case repo.IsRepoRef(ref):
			var path string
			if path, err = repo.ResolvePath(ref, a.repository); err != nil {
				handleError(err, http.StatusNotAcceptable, w)
				return
			}
			if kind == image.KindTape && isFlagSet(req, "create") {
				err = a.daemon.CreateTape(path)
			} else {
				_, err = a.daemon.Load(path, readOnly)
			}

		case ref != "":
			var in io.ReadCloser
			if in, name, err = repo.Resolve(a.fs, ref, a.repository); err != nil {
				handleError(err, http.StatusNotAcceptable, w)
				return
			}
			defer in.Close()
			_, err = a.daemon.LoadData(name, in, readOnly)

		default:
			in := http.MaxBytesReader(w, req.Body, repo.MaxSourceSize)
			_, err = a.daemon.LoadData(name, in, readOnly)
		}

		if handleError(err, http.StatusUnprocessableEntity, w) {
			return
		}

		sendReply([]byte(fmt.Sprintf("loaded %s\n", kind)), http.StatusOK, w)
	}
}

//
func (a *api) eject(kind image.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if handleError(a.daemon.Eject(kind), http.StatusInternalServerError, w) {
			return
		}
		sendReply([]byte(fmt.Sprintf("ejected %s\n", kind)), http.StatusOK, w)
	}
}
