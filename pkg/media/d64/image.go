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

// Package d64 manages the track buffer of a 1541/1551 style drive. It keeps
// one track of a D64 image file in GCR encoded form, the way it passes under
// the drive head, and writes it back to the file when the head moves on.
package d64

import (
	"errors"
	"fmt"

	"github.com/xelalexv/plus4drive/pkg/media/gcr"
	"github.com/xelalexv/plus4drive/pkg/media/image"

	log "github.com/sirupsen/logrus"
)

// ErrTrackUnrecoverable is returned when writing back a modified track is
// skipped, because not a single sector could be decoded from its GCR data.
// The changes made to that track are lost.
var ErrTrackUnrecoverable = errors.New("no sector decodable on modified track")

// Image is a D64 disk image as seen through the head of the drive. The zero
// value is not usable, create instances with New.
type Image struct {
	store   image.Store
	sectors *image.SectorStore

	track gcr.Track

	currentTrack       int
	nTracks            int
	trackDirty         bool
	writeProtected     bool
	haveBadSectorTable bool
	diskID             byte
}

// New creates an image without a file attached. The ID characters start out
// as "AA" and the head is positioned behind the last track.
func New() *Image {
	return &Image{
		currentTrack: MaxHeadTrack,
		track:        gcr.Track{ID1: 0x41, ID2: 0x41},
	}
}

// SetImageFile attaches the image file held by store, after flushing and
// closing any previously attached file. A nil store merely detaches the
// current file. The file length has to match a 35 to 42 track image, with or
// without error table. If it does not, an error wrapping
// image.ErrInvalidGeometry is returned and no file is attached. The caller
// keeps ownership of store until SetImageFile succeeds.
//
// Every successful attach changes the format ID of the disk, so that DOS
// code running in the drive notices the disk change.
func (d *Image) SetImageFile(store image.Store, readOnly bool) error {

	var flushErr error
	if d.store != nil {
		flushErr = d.detach()
	}

	d.writeProtected = false
	d.haveBadSectorTable = false
	d.SetCurrentTrack(18)

	if store == nil {
		return flushErr
	}

	size, err := store.Size()
	if err != nil {
		return err
	}

	nTracks, withErrors := tracksForSize(size)
	if nTracks == 0 {
		return fmt.Errorf("%w: D64 image file has invalid length %d",
			image.ErrInvalidGeometry, size)
	}

	sectors, err := image.NewSectorStore(store, sectorSize)
	if err != nil {
		return err
	}

	d.store = store
	d.sectors = sectors
	d.writeProtected = readOnly || store.IsReadOnly()
	d.nTracks = nTracks
	d.haveBadSectorTable = withErrors

	d.diskID++
	if d.diskID>>4+0x41 == d.track.ID1 && d.diskID&0x0F+0x41 == d.track.ID2 {
		d.diskID++
	}
	d.track.ID1 = d.diskID>>4 + 0x41
	d.track.ID2 = d.diskID&0x0F + 0x41

	log.WithFields(log.Fields{
		"image":          store.Name(),
		"tracks":         d.nTracks,
		"errortable":     d.haveBadSectorTable,
		"writeprotected": d.writeProtected,
		"id":             d.DiskID(),
	}).Info("disk image attached")

	d.currentTrack = MaxHeadTrack
	if err := d.SetCurrentTrack(18); err != nil {
		log.Warnf("reading track 18 of new disk image: %v", err)
	}

	return flushErr
}

// detach flushes the resident track and closes the attached file
func (d *Image) detach() error {

	err := d.FlushTrack(-1)
	if err != nil {
		log.Warnf("flushing track before detaching disk image: %v", err)
	}

	name := d.store.Name()
	if cErr := d.store.Close(); cErr != nil && err == nil {
		err = cErr
	}

	d.store = nil
	d.sectors = nil
	d.nTracks = 0

	log.WithField("image", name).Info("disk image detached")
	return err
}

// Close flushes the resident track and closes the attached file, if any. The
// file is closed even if flushing fails.
func (d *Image) Close() error {
	if d.store == nil {
		return nil
	}
	return d.detach()
}

// ReadTrack loads track trackNum from the image file into the track buffer
// and encodes it to GCR. A negative track number selects the current track.
// The buffer is cleared first, so a failed read leaves an unformatted track.
// Tracks beyond the end of the image read as unformatted without error.
func (d *Image) ReadTrack(trackNum int) error {

	if trackNum < 0 {
		trackNum = d.currentTrack
	}

	size := gcr.MaxTrackBytes
	if trackNum < len(trackSizeTable) {
		size = trackSizeTable[trackNum]
	}
	for i := 0; i < size; i++ {
		d.track.GCR[i] = 0x00
	}
	for i := range d.track.Errors {
		d.track.Errors[i] = gcr.NoCode
	}

	if trackNum < 1 || trackNum > d.nTracks {
		return nil
	}

	nSectors := sectorsPerTrackTable[trackNum]

	if d.haveBadSectorTable {
		errs := make([]byte, nSectors)
		if _, err := d.store.ReadAt(errs, d.errorTableOffset(trackNum)); err != nil {
			log.WithField("track", trackNum).Warnf(
				"cannot read error table: %v", err)
		} else {
			for i, e := range errs {
				d.track.Errors[i] = gcr.ErrorCode(e)
			}
		}
	}

	first := trackOffsetTable[trackNum] / sectorSize
	for s := 0; s < nSectors; s++ {
		if err := d.sectors.ReadSector(
			first+s, d.track.Data[s*sectorSize:]); err != nil {
			return err
		}
	}

	d.track.Encode(trackNum, nSectors, trackSizeTable[trackNum])

	log.WithFields(log.Fields{
		"track": trackNum, "sectors": nSectors}).Trace("track read")
	return nil
}

// FlushTrack writes track trackNum back to the image file if it has been
// modified. A negative track number selects the current track. The GCR data
// is decoded first. If not a single sector can be decoded, writing the
// sectors is skipped and ErrTrackUnrecoverable is returned. The error table,
// if present, is updated in any case. The track counts as clean afterwards,
// also when writing fails.
func (d *Image) FlushTrack(trackNum int) error {

	if trackNum < 0 {
		trackNum = d.currentTrack
	}

	defer func() { d.trackDirty = false }()

	if !d.trackDirty || d.writeProtected || trackNum < 1 || trackNum > d.nTracks {
		return nil
	}

	logger := log.WithField("track", trackNum)
	nSectors := sectorsPerTrackTable[trackNum]

	var ret error

	if decoded := d.track.Decode(
		trackNum, nSectors, trackSizeTable[trackNum]); decoded > 0 {
		first := trackOffsetTable[trackNum] / sectorSize
		for s := 0; s < nSectors; s++ {
			if err := d.sectors.WriteSector(
				first+s, d.track.Data[s*sectorSize:]); err != nil {
				ret = err
				break
			}
		}
		logger.WithField("decoded", decoded).Debug("track flushed")

	} else {
		logger.Warn("no sector decodable on modified track, changes discarded")
		ret = ErrTrackUnrecoverable
	}

	if d.haveBadSectorTable {
		errs := make([]byte, nSectors)
		for i := range errs {
			errs[i] = byte(d.track.Errors[i])
		}
		if _, err := d.store.WriteAt(errs, d.errorTableOffset(trackNum)); err != nil {
			return err
		}
		if err := d.store.Sync(); err != nil {
			return err
		}
	}

	return ret
}

// SetCurrentTrack moves the head to trackNum, clamped to 1 through 42. When
// the track changes, the old track is flushed and the new one read. The
// current track is updated even if either of that fails.
func (d *Image) SetCurrentTrack(trackNum int) error {

	if trackNum < 1 {
		trackNum = 1
	} else if trackNum > MaxHeadTrack {
		trackNum = MaxHeadTrack
	}

	if trackNum == d.currentTrack {
		return nil
	}

	flushErr := d.FlushTrack(d.currentTrack)
	d.currentTrack = trackNum
	readErr := d.ReadTrack(d.currentTrack)

	if flushErr != nil {
		return flushErr
	}
	return readErr
}

// errorTableOffset returns the file offset of the error codes for trackNum
func (d *Image) errorTableOffset(trackNum int) int64 {
	return int64(trackOffsetTable[trackNum]/sectorSize +
		trackOffsetTable[d.nTracks+1])
}

// ReadGCRByte returns the GCR byte at position pos of the current track.
func (d *Image) ReadGCRByte(pos int) byte {
	return d.track.GCR[pos%gcr.MaxTrackBytes]
}

// WriteGCRByte stores b at position pos of the current track, unless the disk
// is write protected.
func (d *Image) WriteGCRByte(pos int, b byte) {
	if d.writeProtected {
		return
	}
	d.trackDirty = true
	d.track.GCR[pos%gcr.MaxTrackBytes] = b
}

// TrackSize returns the number of GCR bytes on the current track.
func (d *Image) TrackSize() int {
	return trackSizeTable[d.currentTrack]
}

// TrackSpeed returns the number of 4 MHz cycles per bit on the current track.
func (d *Image) TrackSpeed() int {
	return int(trackSpeedTable[d.currentTrack])
}

//
func (d *Image) CurrentTrack() int {
	return d.currentTrack
}

// TrackCount returns the number of tracks of the attached image, 0 if there
// is none.
func (d *Image) TrackCount() int {
	return d.nTracks
}

//
func (d *Image) HasDisk() bool {
	return d.store != nil
}

//
func (d *Image) IsWriteProtected() bool {
	return d.writeProtected
}

//
func (d *Image) IsTrackDirty() bool {
	return d.trackDirty
}

//
func (d *Image) HasErrorTable() bool {
	return d.haveBadSectorTable
}

// DiskID returns the two format ID characters.
func (d *Image) DiskID() string {
	return string([]byte{d.track.ID1, d.track.ID2})
}

//
func (d *Image) Name() string {
	if d.store == nil {
		return ""
	}
	return d.store.Name()
}

// SectorErrors returns a copy of the error codes of the current track's
// sectors.
func (d *Image) SectorErrors() []gcr.ErrorCode {
	n := sectorsPerTrackTable[d.currentTrack]
	ret := make([]gcr.ErrorCode, n)
	copy(ret, d.track.Errors[:n])
	return ret
}

// DecodeTrack decodes the GCR data of the current track into a fresh track
// buffer, leaving the resident track untouched. It returns the sector data,
// the per sector error codes, and the number of sectors decoded.
func (d *Image) DecodeTrack() ([]byte, []gcr.ErrorCode, int) {
	t := d.track
	t.Data = [gcr.MaxDataBytes]byte{}
	n := sectorsPerTrackTable[d.currentTrack]
	decoded := t.Decode(d.currentTrack, n, trackSizeTable[d.currentTrack])
	data := make([]byte, n*sectorSize)
	copy(data, t.Data[:])
	errs := make([]gcr.ErrorCode, n)
	copy(errs, t.Errors[:n])
	return data, errs, decoded
}
