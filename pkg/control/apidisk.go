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
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/xelalexv/plus4drive/pkg/daemon"
	"github.com/xelalexv/plus4drive/pkg/fdc"
)

//
func (a *api) diskTrack(w http.ResponseWriter, req *http.Request) {

	track, err := getIntArg(req, "track", -1)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	rep, err := a.daemon.DiskTrack(track, isFlagSet(req, "data"))
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(rep, http.StatusOK, w)
		return
	}

	read, write := io.Pipe()

	go func() {
		writeTrackReport(write, rep)
		write.Close()
	}()

	sendStreamReply(read, http.StatusOK, w)
}

// writeTrackReport lists the state of each sector on a track, followed by a
// hex dump of the decoded data, if present
func writeTrackReport(w io.Writer, rep *daemon.TrackReport) {

	fmt.Fprintf(w, "\ntrack %d: %d of %d sectors decoded\n\n",
		rep.Track, rep.Decoded, rep.Sectors)

	for s, e := range rep.Errors {
		fmt.Fprintf(w, "  sector %2d: %s\n", s, e)
	}

	if len(rep.Data) > 0 {
		fmt.Fprintln(w)
		d := hex.Dumper(w)
		defer d.Close()
		d.Write(rep.Data)
	}
}

//
func getSectorAddress(w http.ResponseWriter, req *http.Request) (
	track, side, sector int, ok bool) {

	var err error
	if track, err = getIntArg(req, "track", -1); err == nil {
		if side, err = getIntArg(req, "side", -1); err == nil {
			sector, err = getIntArg(req, "sector", -1)
		}
	}

	return track, side, sector, !handleError(
		err, http.StatusUnprocessableEntity, w)
}

//
type sectorReply struct {
	Status byte   `json:"status"`
	Data   []byte `json:"data,omitempty"`
}

//
func (a *api) floppySector(w http.ResponseWriter, req *http.Request) {

	track, side, sector, ok := getSectorAddress(w, req)
	if !ok {
		return
	}

	data, status, err := a.daemon.FloppySector(track, side, sector)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(&sectorReply{Status: status, Data: data}, http.StatusOK, w)
		return
	}

	if status&(fdc.StatusRecordNotFound|fdc.StatusCRCError) != 0 {
		handleError(fmt.Errorf("reading sector failed, status %02X", status),
			http.StatusUnprocessableEntity, w)
		return
	}

	read, write := io.Pipe()

	go func() {
		d := hex.Dumper(write)
		d.Write(data)
		d.Close()
		write.Close()
	}()

	sendStreamReply(read, http.StatusOK, w)
}

//
func (a *api) writeFloppySector(w http.ResponseWriter, req *http.Request) {

	track, side, sector, ok := getSectorAddress(w, req)
	if !ok {
		return
	}

	data, err := ioutil.ReadAll(
		http.MaxBytesReader(w, req.Body, fdc.SectorSize))
	if handleError(err, http.StatusRequestEntityTooLarge, w) {
		return
	}

	status, err := a.daemon.WriteFloppySector(track, side, sector, data)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	if wantsJSON(req) {
		sendJSONReply(&sectorReply{Status: status}, http.StatusOK, w)
		return
	}

	if status&(fdc.StatusRecordNotFound|fdc.StatusWriteError|
		fdc.StatusWriteProt|fdc.StatusSeekError) != 0 {
		handleError(fmt.Errorf("writing sector failed, status %02X", status),
			http.StatusUnprocessableEntity, w)
		return
	}

	sendReply([]byte("sector written\n"), http.StatusOK, w)
}
