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
)

//
type stringer interface {
	String() string
}

//
func reply(obj stringer, w http.ResponseWriter, req *http.Request) {
	if wantsJSON(req) {
		sendJSONReply(obj, http.StatusOK, w)
	} else {
		sendReply([]byte(fmt.Sprintf("%s\n", obj)), http.StatusOK, w)
	}
}

//
func (a *api) status(w http.ResponseWriter, req *http.Request) {
	reply(a.daemon.Status(), w, req)
}

//
func (a *api) diskStatus(w http.ResponseWriter, req *http.Request) {
	reply(a.daemon.DiskStatus(), w, req)
}

//
func (a *api) floppyStatus(w http.ResponseWriter, req *http.Request) {
	reply(a.daemon.FloppyStatus(), w, req)
}

//
func (a *api) tapeStatus(w http.ResponseWriter, req *http.Request) {
	reply(a.daemon.TapeStatus(), w, req)
}
