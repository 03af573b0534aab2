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

// Package fdc emulates the WD1770/1772/1773 floppy disk controller, as used in
// the 1581 disk drive. The controller works directly on an image file with 512
// byte sectors. Commands complete instantly, no seek or rotation delays are
// modeled.
package fdc

import (
	"github.com/xelalexv/plus4drive/pkg/media/image"

	log "github.com/sirupsen/logrus"
)

// InterruptHandler receives the changes of the controller's interrupt request
// line.
type InterruptHandler interface {
	InterruptRequest()
	ClearInterruptRequest()
}

// WD177x is the controller state. Register access is not synchronized.
type WD177x struct {
	store    image.Store
	sectors  *image.SectorStore
	geometry Geometry

	commandRegister byte
	statusRegister  byte
	trackRegister   byte
	sectorRegister  byte
	dataRegister    byte

	currentTrack byte
	currentSide  byte

	writeProtected   bool
	diskChanged      bool
	interruptRequest bool
	dataRequest      bool
	isWD1773         bool
	steppingIn       bool
	busyFlagHack     bool
	busyFlagToggle   bool

	irq InterruptHandler

	buf    [SectorSize]byte
	bufPos int
}

// New creates a controller without disk. Interrupt request changes are sent
// to irq, which may be nil.
func New(irq InterruptHandler) *WD177x {
	w := &WD177x{irq: irq, bufPos: SectorSize}
	w.Reset()
	return w
}

// SetDiskImageFile attaches the image file held by store, after closing any
// previously attached file, and resets the controller. A nil store just
// detaches the current disk. Missing values in g are detected with
// DetectGeometry. If the geometry cannot be determined or does not fit the
// image size, an error wrapping image.ErrInvalidGeometry is returned and no
// disk is attached. The caller keeps ownership of store until
// SetDiskImageFile succeeds.
func (w *WD177x) SetDiskImageFile(store image.Store, readOnly bool,
	g Geometry) error {

	if store == w.store && (store == nil || g == w.geometry) {
		return nil
	}

	var closeErr error
	if w.store != nil && w.store != store {
		w.Reset()
		name := w.store.Name()
		closeErr = w.store.Close()
		log.WithField("image", name).Info("floppy image detached")
	}

	w.store = nil
	w.sectors = nil
	w.geometry = Geometry{}
	w.writeProtected = false
	w.Reset()
	w.diskChanged = true

	if store == nil {
		return closeErr
	}

	g, err := DetectGeometry(store, g)
	if err != nil {
		return err
	}

	sectors, err := image.NewSectorStore(store, SectorSize)
	if err != nil {
		return err
	}

	w.store = store
	w.sectors = sectors
	w.geometry = g
	w.writeProtected = readOnly || store.IsReadOnly()
	w.Reset()
	w.diskChanged = true

	log.WithFields(log.Fields{
		"image":          store.Name(),
		"geometry":       g,
		"writeprotected": w.writeProtected,
	}).Info("floppy image attached")

	return closeErr
}

// Close detaches and closes the current image file.
func (w *WD177x) Close() error {
	return w.SetDiskImageFile(nil, false, Geometry{})
}

// Reset brings the controller into its power-on state. An unfinished command
// is terminated first, without raising an interrupt.
func (w *WD177x) Reset() {

	w.setInterrupt(false)

	if w.statusRegister&StatusBusy != 0 {
		// pretend a pending interrupt, so that none gets raised
		w.interruptRequest = true
		w.WriteCommandRegister(CmdForceInterrupt | FlagImmediateInterrupt)
	}

	w.commandRegister = 0
	w.statusRegister = StatusSpinUp
	if w.writeProtected {
		w.statusRegister |= StatusWriteProt
	}
	if w.HasDisk() {
		w.statusRegister |= StatusTrack0 | StatusIndex
	}
	w.trackRegister = 0
	w.sectorRegister = 0
	w.dataRegister = 0
	w.currentTrack = 0
	w.currentSide = 0
	w.diskChanged = true
	w.interruptRequest = false
	w.dataRequest = false
	w.steppingIn = false
	w.busyFlagToggle = false
	w.bufPos = SectorSize
}

// sectorIndex returns the index of the sector addressed by head position and
// sector register, or -1 if there is no such sector on the disk
func (w *WD177x) sectorIndex() int {
	g := w.geometry
	if !w.HasDisk() ||
		int(w.currentTrack) >= g.Tracks || w.currentTrack != w.trackRegister ||
		int(w.currentSide) >= g.Sides ||
		w.sectorRegister < 1 || int(w.sectorRegister) > g.SectorsPerTrack {
		return -1
	}
	return (int(w.currentTrack)*g.Sides+int(w.currentSide))*g.SectorsPerTrack +
		int(w.sectorRegister) - 1
}

//
func (w *WD177x) doStep(update bool) {
	if w.steppingIn {
		w.currentTrack++
		if update {
			w.trackRegister++
		}
	} else {
		if update {
			w.trackRegister--
		}
		// the head cannot move beyond track 0
		if w.currentTrack > 0 {
			w.currentTrack--
			if w.currentTrack == 0 {
				w.trackRegister = 0
			}
		}
	}
}

// setInterrupt changes the state of the interrupt request line, and notifies
// the handler if it actually changes
func (w *WD177x) setInterrupt(on bool) {
	if w.interruptRequest == on {
		return
	}
	w.interruptRequest = on
	if w.irq == nil {
		return
	}
	if on {
		w.irq.InterruptRequest()
	} else {
		w.irq.ClearInterruptRequest()
	}
}

// WriteCommandRegister starts command n. While the controller is busy, only
// FORCE INTERRUPT is accepted.
func (w *WD177x) WriteCommandRegister(n byte) {

	if w.statusRegister&StatusBusy != 0 && n&0xF0 != CmdForceInterrupt {
		log.WithField("command", n).Trace("controller busy, command ignored")
		return
	}
	if w.statusRegister&StatusBusy == 0 {
		w.commandRegister = n
	}

	log.WithFields(log.Fields{
		"command": n,
		"track":   w.trackRegister,
		"sector":  w.sectorRegister,
		"data":    w.dataRegister,
	}).Trace("floppy command")

	switch {
	case n&0x80 == 0:
		w.typeI(n)
	case n&0xC0 == 0x80:
		w.typeII(n)
	case n&0xF0 != CmdForceInterrupt:
		w.typeIII(n)
	default:
		w.typeIV(n)
	}
}

// RESTORE, SEEK, STEP, STEP IN, STEP OUT
func (w *WD177x) typeI(n byte) {

	verify := n&FlagVerify != 0
	update := n&FlagUpdate != 0

	w.dataRequest = false
	w.statusRegister = StatusSpinUp | StatusBusy
	w.setInterrupt(false)

	switch n & 0xF0 {

	case CmdRestore:
		w.trackRegister = w.currentTrack
		w.dataRegister = 0
		if w.dataRegister < w.trackRegister {
			w.steppingIn = false
			for w.trackRegister != w.dataRegister {
				w.doStep(true)
			}
		}

	case CmdSeek:
		if w.dataRegister != w.trackRegister {
			w.steppingIn = w.dataRegister > w.trackRegister
			for w.trackRegister != w.dataRegister {
				w.doStep(true)
			}
		}

	default:
		switch n & 0xE0 {
		case CmdStepIn:
			w.steppingIn = true
		case CmdStepOut:
			w.steppingIn = false
		}
		w.doStep(update)
	}

	if w.writeProtected {
		w.statusRegister |= StatusWriteProt
	}
	if verify && (!w.HasDisk() || int(w.currentTrack) >= w.geometry.Tracks ||
		w.currentTrack != w.trackRegister) {
		w.statusRegister |= StatusSeekError
	}
	if w.currentTrack == 0 {
		w.statusRegister |= StatusTrack0
	}
	if w.HasDisk() {
		w.statusRegister |= StatusIndex
	}
	w.statusRegister &^= StatusBusy
	w.setInterrupt(true)
}

// READ SECTOR, WRITE SECTOR
func (w *WD177x) typeII(n byte) {

	w.dataRequest = false
	w.statusRegister = StatusBusy
	w.setInterrupt(false)

	if w.isWD1773 && n&FlagSideCompare != 0 {
		if n&FlagSide != 0 {
			w.currentSide = 1
		} else {
			w.currentSide = 0
		}
	}

	w.bufPos = SectorSize

	if n&0x20 == 0 {
		if ix := w.sectorIndex(); ix < 0 {
			w.statusRegister |= StatusRecordNotFound
		} else if err := w.sectors.ReadSector(ix, w.buf[:]); err != nil {
			log.WithField("sector", ix).Warnf("reading floppy sector: %v", err)
			w.statusRegister |= StatusCRCError
		} else {
			w.startTransfer(0)
		}

	} else {
		if w.writeProtected {
			w.statusRegister |= StatusWriteProt
		} else if w.sectorIndex() < 0 {
			w.statusRegister |= StatusRecordNotFound
		} else {
			w.startTransfer(0)
		}
	}

	if w.bufPos >= SectorSize {
		w.statusRegister &^= StatusBusy
		w.setInterrupt(true)
	}
}

// READ ADDRESS, READ TRACK, WRITE TRACK; only READ ADDRESS is implemented
func (w *WD177x) typeIII(n byte) {

	w.dataRequest = false
	w.statusRegister = StatusBusy
	w.setInterrupt(false)

	w.bufPos = SectorSize

	switch {
	case n&0x20 == 0:
		if w.HasDisk() && int(w.currentTrack) < w.geometry.Tracks &&
			int(w.currentSide) < w.geometry.Sides {
			id := w.buf[SectorSize-6:]
			id[0] = w.currentTrack
			id[1] = w.currentSide
			id[2] = 0x01 // first sector of track
			id[3] = 0x02 // 512 bytes per sector
			crc := CRC16(id[:4], idFieldCRCInit)
			id[4] = byte(crc >> 8)
			id[5] = byte(crc)
			w.startTransfer(SectorSize - 6)
		} else {
			w.statusRegister |= StatusRecordNotFound
		}

	case n&0x10 == 0:
		w.statusRegister |= StatusNotReady

	default:
		w.statusRegister |= StatusWriteError
	}

	if w.bufPos >= SectorSize {
		w.statusRegister &^= StatusBusy
		w.setInterrupt(true)
	}
}

// FORCE INTERRUPT; only immediate interrupt is implemented
func (w *WD177x) typeIV(n byte) {

	w.dataRequest = false
	w.statusRegister = w.statusRegister&StatusBusy | StatusSpinUp
	if w.writeProtected {
		w.statusRegister |= StatusWriteProt
	}
	if w.HasDisk() {
		if w.currentTrack == 0 {
			w.statusRegister |= StatusTrack0
		}
		w.statusRegister |= StatusIndex
	}

	// an interrupted sector write still writes what it got so far
	if w.commandRegister&0xE0 == CmdWriteSector &&
		w.statusRegister&StatusBusy != 0 && w.bufPos > 0 {
		for ; w.bufPos < SectorSize; w.bufPos++ {
			w.buf[w.bufPos] = 0
		}
		if ix := w.sectorIndex(); ix >= 0 && !w.writeProtected {
			if err := w.sectors.WriteSector(ix, w.buf[:]); err != nil {
				log.WithField("sector", ix).Warnf(
					"writing interrupted floppy sector: %v", err)
			}
		}
	}

	w.statusRegister &^= StatusBusy
	w.commandRegister = n
	w.bufPos = SectorSize
	if n&(FlagIndexInterrupt|FlagImmediateInterrupt) != 0 {
		w.setInterrupt(true)
	}
}

// startTransfer arms the data request for the buffer contents starting at pos
func (w *WD177x) startTransfer(pos int) {
	w.bufPos = pos
	w.dataRequest = true
	w.statusRegister |= StatusDataRequest
}

// endTransfer clears data request and busy after the last byte of a transfer
func (w *WD177x) endTransfer() {
	w.bufPos = SectorSize
	w.dataRequest = false
	w.statusRegister &^= StatusBusy | StatusDataRequest
}

// ReadStatusRegister returns the status register. Reading it acknowledges a
// pending interrupt, unless that was raised by an immediate FORCE INTERRUPT.
func (w *WD177x) ReadStatusRegister() byte {

	if w.commandRegister&0xF8 != CmdForceInterrupt|FlagImmediateInterrupt {
		w.setInterrupt(false)
	}

	n := w.StatusRegister()
	if w.busyFlagHack {
		w.busyFlagToggle = !w.busyFlagToggle
		if w.busyFlagToggle {
			n |= StatusBusy
		}
	}
	return n
}

// StatusRegister returns the status register without side effects.
func (w *WD177x) StatusRegister() byte {
	if w.isWD1773 {
		return w.statusRegister &^ StatusNotReady // always ready
	}
	return w.statusRegister | StatusMotorOn // motor always on
}

// WriteTrackRegister sets the track register, unless the controller is busy.
func (w *WD177x) WriteTrackRegister(n byte) {
	if w.statusRegister&StatusBusy == 0 {
		w.trackRegister = n
	}
}

//
func (w *WD177x) ReadTrackRegister() byte {
	return w.trackRegister
}

// WriteSectorRegister sets the sector register, unless the controller is busy.
func (w *WD177x) WriteSectorRegister(n byte) {
	if w.statusRegister&StatusBusy == 0 {
		w.sectorRegister = n
	}
}

//
func (w *WD177x) ReadSectorRegister() byte {
	return w.sectorRegister
}

// WriteDataRegister sets the data register. During WRITE SECTOR, the byte
// goes into the sector buffer, and the sector is written to the image file
// once complete. With the multiple sectors flag set, writing continues with
// the next sector.
func (w *WD177x) WriteDataRegister(n byte) {

	w.dataRegister = n

	if !w.dataRequest || w.commandRegister&0xE0 != CmdWriteSector ||
		w.bufPos >= SectorSize {
		return
	}

	w.buf[w.bufPos] = n
	if w.bufPos++; w.bufPos < SectorSize {
		return
	}

	w.endTransfer()

	if ix := w.sectorIndex(); ix < 0 {
		w.statusRegister |= StatusRecordNotFound

	} else if err := w.sectors.WriteSector(ix, w.buf[:]); err != nil {
		log.WithField("sector", ix).Warnf("writing floppy sector: %v", err)
		w.statusRegister |= StatusWriteError

	} else if w.commandRegister&FlagMultiSector != 0 {
		w.sectorRegister++
		w.WriteCommandRegister(w.commandRegister)
		return
	}

	w.commandRegister = 0
	w.setInterrupt(true)
}

// ReadDataRegister returns the data register. During READ SECTOR and READ
// ADDRESS, every read delivers the next byte from the buffer. With the
// multiple sectors flag set, reading continues with the next sector.
func (w *WD177x) ReadDataRegister() byte {

	if !w.dataRequest || w.bufPos >= SectorSize {
		return w.dataRegister
	}

	w.dataRegister = w.buf[w.bufPos]
	if w.bufPos++; w.bufPos < SectorSize {
		return w.dataRegister
	}

	w.endTransfer()

	if w.commandRegister&0xF0 == CmdReadSector|FlagMultiSector {
		w.sectorRegister++
		w.WriteCommandRegister(w.commandRegister)
	} else {
		w.commandRegister = 0
		w.setInterrupt(true)
	}

	return w.dataRegister
}

// DataRegister returns the data register without side effects.
func (w *WD177x) DataRegister() byte {
	return w.dataRegister
}

// HeadPosition packs track, side, and sector into one value, for display.
func (w *WD177x) HeadPosition() uint16 {
	return uint16(w.currentTrack)<<8 | uint16(w.currentSide&1)<<7 |
		uint16(w.sectorRegister&0x7F)
}

//
func (w *WD177x) DiskChanged() bool {
	return w.diskChanged
}

//
func (w *WD177x) ClearDiskChanged() {
	w.diskChanged = false
}

// SetWD1773 selects the WD1773 variant, which supports side select and has a
// not ready instead of a motor on status bit.
func (w *WD177x) SetWD1773(on bool) {
	w.isWD1773 = on
}

// SetBusyFlagHack makes the busy bit read as set on every other status read,
// for software that waits for the controller to become busy.
func (w *WD177x) SetBusyFlagHack(on bool) {
	w.busyFlagHack = on
}

//
func (w *WD177x) InterruptRequest() bool {
	return w.interruptRequest
}

//
func (w *WD177x) DataRequest() bool {
	return w.dataRequest
}

//
func (w *WD177x) HasDisk() bool {
	return w.store != nil
}

//
func (w *WD177x) IsWriteProtected() bool {
	return w.writeProtected
}

//
func (w *WD177x) Geometry() Geometry {
	return w.geometry
}

//
func (w *WD177x) Name() string {
	if w.store == nil {
		return ""
	}
	return w.store.Name()
}

// CurrentTrack returns the physical head position, which may differ from the
// track register.
func (w *WD177x) CurrentTrack() byte {
	return w.currentTrack
}

//
func (w *WD177x) CurrentSide() byte {
	return w.currentSide
}

// SetSide selects the disk side through the side select line of the drive.
// On the WD1773, READ SECTOR and WRITE SECTOR may override the selection.
func (w *WD177x) SetSide(side byte) {
	w.currentSide = side & 0x01
}
