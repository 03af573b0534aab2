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

package daemon

import (
	"fmt"

	"github.com/xelalexv/plus4drive/pkg/fdc"
	"github.com/xelalexv/plus4drive/pkg/media/d64"

	log "github.com/sirupsen/logrus"
)

// TrackReport describes what the drive head finds on a track of the disk.
type TrackReport struct {
	Track   int      `json:"track"`
	Sectors int      `json:"sectors"`
	Decoded int      `json:"decoded"`
	Errors  []string `json:"errors"`
	Data    []byte   `json:"data,omitempty"`
}

// DiskTrack moves the head of the disk drive to track, and decodes the GCR
// data found there.
func (d *Daemon) DiskTrack(track int, withData bool) (*TrackReport, error) {

	if track < 1 || track > d64.MaxHeadTrack {
		return nil, fmt.Errorf("invalid track: %d", track)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.disk.HasDisk() {
		return nil, fmt.Errorf("no disk loaded")
	}

	if err := d.disk.SetCurrentTrack(track); err != nil {
		log.WithField("track", track).Warnf("moving disk head: %v", err)
	}

	data, codes, decoded := d.disk.DecodeTrack()

	ret := &TrackReport{
		Track:   track,
		Sectors: len(codes),
		Decoded: decoded,
		Errors:  make([]string, len(codes)),
	}
	for ix, c := range codes {
		ret.Errors[ix] = c.String()
	}
	if withData {
		ret.Data = data
	}

	return ret, nil
}

// FloppySector reads a sector through the floppy controller, the way DOS code
// in the drive does it: seek to track with verification, select side, then
// READ SECTOR. Sector numbers start at 1. Besides the data, the status
// register after the command is returned. A failed read is not an error, it
// shows in the status.
func (d *Daemon) FloppySector(track, side, sector int) ([]byte, byte, error) {

	if track < 0 || track >= fdc.MaxTracks || side < 0 || side >= fdc.MaxSides ||
		sector < 1 || sector > fdc.MaxSectorsPerTrack {
		return nil, 0, fmt.Errorf("invalid sector address: %d/%d/%d",
			track, side, sector)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.floppy.HasDisk() {
		return nil, 0, fmt.Errorf("no floppy loaded")
	}

	w := d.floppy
	w.WriteDataRegister(byte(track))
	w.WriteCommandRegister(fdc.CmdSeek | fdc.FlagVerify)
	if st := w.ReadStatusRegister(); st&fdc.StatusSeekError != 0 {
		return nil, st, nil
	}

	w.SetSide(byte(side))
	w.WriteSectorRegister(byte(sector))
	w.WriteCommandRegister(fdc.CmdReadSector)

	var data []byte
	for w.DataRequest() {
		data = append(data, w.ReadDataRegister())
	}

	return data, w.ReadStatusRegister(), nil
}

// WriteFloppySector writes data to a sector through the floppy controller.
// data is padded or cut to the sector size. The status register after the
// command is returned.
func (d *Daemon) WriteFloppySector(track, side, sector int, data []byte) (
	byte, error) {

	if track < 0 || track >= fdc.MaxTracks || side < 0 || side >= fdc.MaxSides ||
		sector < 1 || sector > fdc.MaxSectorsPerTrack {
		return 0, fmt.Errorf("invalid sector address: %d/%d/%d",
			track, side, sector)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if !d.floppy.HasDisk() {
		return 0, fmt.Errorf("no floppy loaded")
	}

	w := d.floppy
	w.WriteDataRegister(byte(track))
	w.WriteCommandRegister(fdc.CmdSeek | fdc.FlagVerify)
	if st := w.ReadStatusRegister(); st&fdc.StatusSeekError != 0 {
		return st, nil
	}

	w.SetSide(byte(side))
	w.WriteSectorRegister(byte(sector))
	w.WriteCommandRegister(fdc.CmdWriteSector)

	for ix := 0; w.DataRequest(); ix++ {
		var b byte
		if ix < len(data) {
			b = data[ix]
		}
		w.WriteDataRegister(b)
	}

	return w.ReadStatusRegister(), nil
}
