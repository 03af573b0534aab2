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

package tape

import (
	"bufio"
	"bytes"
	"io"

	log "github.com/sirupsen/logrus"
)

const (
	tapMagic      = "C16-TAPE-RAW"
	tapHeaderSize = 20
	tapSampleRate = 55420
	tapOldFormat  = 1
	tapNewFormat  = 2

	// each emitted sample covers this many ticks of the pulse clock
	tapOversampling = 16
)

// tap is the state of a C16 TAP file. The file is a sequence of pulse
// lengths. A non-zero byte is a length in units of 8 ticks, a zero byte is
// followed by a 24 bit little endian length in ticks. Old format files hold
// full periods rather than half periods, so their lengths are halved and read
// only on every other edge.
type tap struct {
	section *io.SectionReader
	reader  *bufio.Reader
	filePos int64

	oldFormat bool
	endOfTape bool
	truncated bool

	signal     int
	count      int
	savedCount int

	// file and sample positions for the start of each second
	fileIndex   []int64
	sampleIndex []int64
}

// isTAP checks whether the file in store starts with a TAP header, and
// returns the format version.
func isTAP(t *Tape) (bool, bool) {

	size, err := t.store.Size()
	if err != nil || size < tapHeaderSize {
		return false, false
	}

	hdr := make([]byte, len(tapMagic)+1)
	if _, err := t.store.ReadAt(hdr, 0); err != nil {
		return false, false
	}
	if !bytes.Equal(hdr[:len(tapMagic)], []byte(tapMagic)) {
		return false, false
	}

	switch hdr[len(tapMagic)] {
	case tapOldFormat:
		return true, true
	case tapNewFormat:
		return true, false
	}
	return false, false
}

// openTAP sets up t for the TAP file in store. The whole file is decoded once
// to find the tape length, and to build an index for seeking. With a positive
// indexLimit, decoding stops after that many seconds, and the tape ends there.
func openTAP(t *Tape, oldFormat bool, indexLimit int) error {

	size, err := t.store.Size()
	if err != nil {
		return err
	}

	p := &tap{
		section:   io.NewSectionReader(t.store, 0, size),
		oldFormat: oldFormat,
	}
	p.reader = bufio.NewReader(p.section)

	t.format = FormatTAP
	t.tap = p
	t.sampleRate = tapSampleRate
	t.readOnly = true

	p.reposition(tapHeaderSize)
	p.resetSignal()

	for sec := 0; !p.endOfTape; sec++ {
		if indexLimit > 0 && sec >= indexLimit {
			log.WithField("seconds", indexLimit).Warn(
				"TAP file exceeds seek index limit, tape truncated")
			t.length = t.position
			p.truncated = true
			break
		}
		p.fileIndex = append(p.fileIndex, p.filePos)
		p.sampleIndex = append(p.sampleIndex, t.position)
		for q := 0; q < t.sampleRate; q++ {
			t.length = t.position
			p.runOneSample(t)
		}
	}

	log.WithFields(log.Fields{
		"tape":    t.Name(),
		"old":     oldFormat,
		"samples": t.length,
		"index":   len(p.fileIndex),
	}).Info("TAP file opened")

	p.seek(t, 0)
	return nil
}

//
func (p *tap) reposition(off int64) bool {
	if _, err := p.section.Seek(off, io.SeekStart); err != nil {
		return false
	}
	p.reader.Reset(p.section)
	p.filePos = off
	return true
}

//
func (p *tap) readByte() (int, bool) {
	b, err := p.reader.ReadByte()
	if err != nil {
		p.endOfTape = true
		return 0, false
	}
	p.filePos++
	return int(b), true
}

// readPulse reads the next pulse length into savedCount
func (p *tap) readPulse() bool {

	c, ok := p.readByte()
	if !ok {
		return false
	}

	if c == 0 {
		p.savedCount = 0
		for shift := 0; shift < 24; shift += 8 {
			if c, ok = p.readByte(); !ok {
				return false
			}
			p.savedCount |= c << shift
		}
	} else {
		p.savedCount = c << 3
	}

	if p.oldFormat {
		p.savedCount >>= 1
	}
	return true
}

//
func (p *tap) runOneSample(t *Tape) {

	if p.truncated && t.position >= t.length {
		p.endOfTape = true
	}
	if p.endOfTape {
		t.position = t.length
		t.output = 0
		return
	}

	sum := 0
	for i := 0; i < tapOversampling; i++ {
		if p.count == 0 {
			p.signal = -p.signal
			if !(p.oldFormat && p.signal > 0) {
				if !p.readPulse() {
					break
				}
			}
			p.count = p.savedCount
		}
		sum += p.signal
		if p.count > 0 {
			p.count--
		}
	}

	t.position++
	if sum > 0 {
		t.output = 1 << (t.requestedBits - 1)
	} else {
		t.output = 0
	}
}

// seek positions the tape at the start of second sec, using the index. Times
// beyond the index go to the last indexed second.
func (p *tap) seek(t *Tape, sec float64) {

	ix := 0
	if sec > 0 {
		ix = int(sec)
	}
	if ix >= len(p.fileIndex) {
		ix = len(p.fileIndex) - 1
	}

	t.position = p.sampleIndex[ix]
	t.output = 0
	p.endOfTape = false
	p.resetSignal()

	if !p.reposition(p.fileIndex[ix]) {
		p.endOfTape = true
	}
}

// resetSignal sets up the pulse decoder such that the next edge is read
// from the file
func (p *tap) resetSignal() {
	if p.oldFormat {
		p.signal = -1
	} else {
		p.signal = 1
	}
	p.count = 0
	p.savedCount = 0
}
