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
	"strings"
)

//
type DiskStatus struct {
	Image          string `json:"image,omitempty"`
	Tracks         int    `json:"tracks,omitempty"`
	Track          int    `json:"track,omitempty"`
	ID             string `json:"id,omitempty"`
	ErrorTable     bool   `json:"errorTable"`
	WriteProtected bool   `json:"writeProtected"`
	Modified       bool   `json:"modified"`
}

//
func (s *DiskStatus) String() string {
	if s.Image == "" {
		return "disk:   empty"
	}
	return fmt.Sprintf("disk:   %s, %d tracks, ID %s, head on track %d%s",
		s.Image, s.Tracks, s.ID, s.Track, flags(
			s.ErrorTable, "error table",
			s.WriteProtected, "write protected",
			s.Modified, "modified"))
}

//
type FloppyStatus struct {
	Image          string `json:"image,omitempty"`
	Geometry       string `json:"geometry,omitempty"`
	Track          int    `json:"track"`
	Side           int    `json:"side"`
	Status         byte   `json:"status"`
	Interrupts     int    `json:"interrupts"`
	WriteProtected bool   `json:"writeProtected"`
	Changed        bool   `json:"changed"`
}

//
func (s *FloppyStatus) String() string {
	if s.Image == "" {
		return "floppy: empty"
	}
	return fmt.Sprintf("floppy: %s, %s, head on track %d side %d, status %02X%s",
		s.Image, s.Geometry, s.Track, s.Side, s.Status, flags(
			s.WriteProtected, "write protected",
			s.Changed, "changed"))
}

//
type TapeStatus struct {
	Image      string    `json:"image,omitempty"`
	Format     string    `json:"format,omitempty"`
	SampleRate int       `json:"sampleRate,omitempty"`
	SampleSize int       `json:"sampleSize,omitempty"`
	FileBits   int       `json:"fileBits,omitempty"`
	Position   float64   `json:"position"`
	Length     float64   `json:"length"`
	CuePoints  []float64 `json:"cuePoints,omitempty"`
	ReadOnly   bool      `json:"readOnly"`
	Playing    bool      `json:"playing"`
	Recording  bool      `json:"recording"`
	Motor      bool      `json:"motor"`
}

//
func (s *TapeStatus) String() string {
	if s.Image == "" {
		return "tape:   empty"
	}
	return fmt.Sprintf(
		"tape:   %s, %s, %d Hz, %d bit, at %.2fs of %.2fs, %d cue points%s",
		s.Image, s.Format, s.SampleRate, s.FileBits, s.Position, s.Length,
		len(s.CuePoints), flags(
			s.ReadOnly, "read-only",
			s.Playing && !s.Recording, "playing",
			s.Recording, "recording",
			s.Motor, "motor on"))
}

//
type Status struct {
	Disk   *DiskStatus   `json:"disk"`
	Floppy *FloppyStatus `json:"floppy"`
	Tape   *TapeStatus   `json:"tape"`
}

//
func (s *Status) String() string {
	return strings.Join(
		[]string{s.Disk.String(), s.Floppy.String(), s.Tape.String()}, "\n")
}

// flags takes pairs of condition and label, and lists the labels whose
// condition is true
func flags(pairs ...interface{}) string {
	var ret []string
	for ix := 0; ix+1 < len(pairs); ix += 2 {
		if on, _ := pairs[ix].(bool); on {
			ret = append(ret, pairs[ix+1].(string))
		}
	}
	if len(ret) == 0 {
		return ""
	}
	return ", " + strings.Join(ret, ", ")
}

//
func (d *Daemon) Status() *Status {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return &Status{
		Disk:   d.diskStatus(),
		Floppy: d.floppyStatus(),
		Tape:   d.tapeStatus(),
	}
}

//
func (d *Daemon) DiskStatus() *DiskStatus {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.diskStatus()
}

//
func (d *Daemon) diskStatus() *DiskStatus {
	if !d.disk.HasDisk() {
		return &DiskStatus{}
	}
	return &DiskStatus{
		Image:          d.disk.Name(),
		Tracks:         d.disk.TrackCount(),
		Track:          d.disk.CurrentTrack(),
		ID:             d.disk.DiskID(),
		ErrorTable:     d.disk.HasErrorTable(),
		WriteProtected: d.disk.IsWriteProtected(),
		Modified:       d.disk.IsTrackDirty(),
	}
}

//
func (d *Daemon) FloppyStatus() *FloppyStatus {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.floppyStatus()
}

//
func (d *Daemon) floppyStatus() *FloppyStatus {
	if !d.floppy.HasDisk() {
		return &FloppyStatus{}
	}
	return &FloppyStatus{
		Image:          d.floppy.Name(),
		Geometry:       d.floppy.Geometry().String(),
		Track:          int(d.floppy.CurrentTrack()),
		Side:           int(d.floppy.CurrentSide()),
		Status:         d.floppy.StatusRegister(),
		Interrupts:     d.irq.requests,
		WriteProtected: d.floppy.IsWriteProtected(),
		Changed:        d.floppy.DiskChanged(),
	}
}

//
func (d *Daemon) TapeStatus() *TapeStatus {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.tapeStatus()
}

//
func (d *Daemon) tapeStatus() *TapeStatus {

	t := d.tape
	if t == nil {
		return &TapeStatus{}
	}

	ret := &TapeStatus{
		Image:      t.Name(),
		Format:     t.Format().String(),
		SampleRate: t.SampleRate(),
		SampleSize: t.SampleSize(),
		FileBits:   t.FileSampleSize(),
		Position:   t.Position(),
		Length:     t.Length(),
		ReadOnly:   t.IsReadOnly(),
		Playing:    t.IsPlaybackOn(),
		Recording:  t.IsRecordOn(),
		Motor:      t.IsMotorOn(),
	}

	for _, c := range t.CuePoints() {
		ret.CuePoints = append(ret.CuePoints, float64(c)/float64(t.SampleRate()))
	}

	return ret
}

