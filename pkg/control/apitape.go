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
	"net/http"

	"github.com/xelalexv/plus4drive/pkg/daemon"
)

//
func (a *api) tapeCommand(w http.ResponseWriter, req *http.Request) {

	cmd, err := daemon.ParseTapeCommand(getArg(req, "command"))
	if handleError(err, http.StatusNotFound, w) {
		return
	}

	arg, err := getFloatArg(req, "arg", 0)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if handleError(
		a.daemon.TapeControl(cmd, arg), http.StatusUnprocessableEntity, w) {
		return
	}

	reply(a.daemon.TapeStatus(), w, req)
}

//
func (a *api) tapeParameters(w http.ResponseWriter, req *http.Request) {

	channel, err := getIntArg(req, "channel", 0)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	min, err := getFloatArg(req, "min", 500)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	max, err := getFloatArg(req, "max", 5000)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if min < 0 || max <= min {
		handleError(fmt.Errorf("invalid filter band: %.0f - %.0f Hz", min, max),
			http.StatusUnprocessableEntity, w)
		return
	}

	a.daemon.SetTapeParameters(
		channel, isFlagSet(req, "invert"), isFlagSet(req, "filter"), min, max)

	sendReply([]byte("tape parameters set\n"), http.StatusOK, w)
}
