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
	"encoding/binary"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

const (
	nativeMagic1 = 0x0275CD72
	nativeMagic2 = 0x1C445126

	nativeHeaderSize  = 4096
	nativeHeaderWords = nativeHeaderSize / 4
	noCuePoint        = 0xFFFFFFFF

	// MaxCuePoints is the number of cue points a native tape file can hold.
	MaxCuePoints = 1019

	blockSamples = 4096
	blockMask    = blockSamples - 1
)

// native is the state of a plus4emu tape file. Samples are packed MSB first
// at the file's sample size, and buffered in blocks of 4096. Files without
// header carry 1 bit samples, and cannot hold cue points.
type native struct {
	newFormat bool
	cues      []uint32
	buf       [blockSamples]byte
	dirty     bool
}

// openNative sets up t for the native tape file in store. With create set,
// a header is written and the file becomes an empty tape with rate samples
// per second.
func openNative(t *Tape, create bool, rate int) error {

	if rate < MinSampleRate || rate > MaxSampleRate {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, rate)
	}

	n := &native{}
	t.format = FormatNative
	t.native = n
	t.readOnly = t.store.IsReadOnly()

	if create {
		n.newFormat = true
		t.sampleRate = rate
		t.fileBits = t.requestedBits
		t.length = 0
		t.readOnly = false
		return n.writeHeader(t)
	}

	size, err := t.store.Size()
	if err != nil {
		return err
	}

	if size >= nativeHeaderSize {
		hdr := make([]byte, nativeHeaderSize)
		if _, err := t.store.ReadAt(hdr, 0); err != nil {
			return err
		}
		n.parseHeader(t, hdr)
	}

	data := size
	if n.newFormat {
		data -= nativeHeaderSize
	}
	t.length = data * 8 / int64(t.fileBits)

	log.WithFields(log.Fields{
		"tape":      t.Name(),
		"header":    n.newFormat,
		"rate":      t.sampleRate,
		"bits":      t.fileBits,
		"samples":   t.length,
		"cuepoints": len(n.cues),
		"readonly":  t.readOnly,
	}).Info("native tape file opened")

	n.load(t)
	return nil
}

// parseHeader takes rate, sample size and cue points from hdr, if it is a
// valid header.
func (n *native) parseHeader(t *Tape, hdr []byte) {

	var words [nativeHeaderWords]uint32
	for i := range words {
		words[i] = binary.BigEndian.Uint32(hdr[i*4:])
	}

	if words[0] != nativeMagic1 || words[1] != nativeMagic2 {
		return
	}
	switch words[2] {
	case 1, 2, 4, 8:
	default:
		return
	}
	if words[3] < MinSampleRate || words[3] > MaxSampleRate ||
		words[nativeHeaderWords-1] != noCuePoint {
		return
	}

	n.newFormat = true
	t.fileBits = int(words[2])
	t.sampleRate = int(words[3])

	table := append([]uint32{}, words[4:]...)
	sort.Slice(table, func(i, j int) bool { return table[i] < table[j] })
	n.cues = n.cues[:0]
	for _, c := range table {
		if c == noCuePoint {
			break
		}
		n.cues = append(n.cues, c)
	}
}

// writeHeader writes the header with the current cue point table to the
// file. Files without header are left alone.
func (n *native) writeHeader(t *Tape) error {

	if !n.newFormat {
		return nil
	}

	hdr := make([]byte, nativeHeaderSize)
	binary.BigEndian.PutUint32(hdr[0:], nativeMagic1)
	binary.BigEndian.PutUint32(hdr[4:], nativeMagic2)
	binary.BigEndian.PutUint32(hdr[8:], uint32(t.fileBits))
	binary.BigEndian.PutUint32(hdr[12:], uint32(t.sampleRate))
	for i := 4; i < nativeHeaderWords; i++ {
		c := uint32(noCuePoint)
		if i-4 < len(n.cues) {
			c = n.cues[i-4]
		}
		binary.BigEndian.PutUint32(hdr[i*4:], c)
	}

	if _, err := t.store.WriteAt(hdr, 0); err != nil {
		return err
	}
	return t.store.Sync()
}

//
func (n *native) blockSize(t *Tape) int {
	return 512 * t.fileBits
}

// blockOffset returns the file offset of the block holding sample pos
func (n *native) blockOffset(t *Tape, pos int64) int64 {
	off := (pos >> 12) * int64(n.blockSize(t))
	if n.newFormat {
		off += nativeHeaderSize
	}
	return off
}

// load reads the block at the current position into the sample buffer.
// Anything that cannot be read, such as blocks beyond the end of the tape,
// reads as silence.
func (n *native) load(t *Tape) {

	packed := make([]byte, n.blockSize(t))

	if t.position&^blockMask < t.length {
		if _, err := t.store.ReadAt(
			packed, n.blockOffset(t, t.position)); err != nil {
			log.WithField("position", t.position).Tracef(
				"short tape block read: %v", err)
		}
	}

	n.unpack(t, packed)
}

// flush writes the sample buffer back to the file if it has been modified.
// The buffer afterwards holds samples at the file's resolution, and counts as
// clean even if writing failed.
func (n *native) flush(t *Tape) error {

	if !n.dirty {
		return nil
	}

	packed := n.pack(t)
	err := n.write(t, packed)
	n.unpack(t, packed)
	n.dirty = false

	if err != nil {
		return fmt.Errorf("error writing tape file: %w", err)
	}
	return nil
}

// write stores a packed block at the current position and extends the tape
// length to what has been written.
func (n *native) write(t *Tape, packed []byte) error {

	off := n.blockOffset(t, t.position)
	written, err := t.store.WriteAt(packed, off)

	end := off + int64(written)
	if n.newFormat {
		end -= nativeHeaderSize
	}
	if end = end * 8 / int64(t.fileBits); end > t.length {
		t.length = end
	}

	if err != nil {
		return err
	}
	return t.store.Sync()
}

// pack converts the sample buffer from the requested to the file's sample
// size, and packs it MSB first.
func (n *native) pack(t *Tape) []byte {

	maxValue := byte(1<<t.requestedBits - 1)
	fileBits := t.fileBits
	packed := make([]byte, n.blockSize(t))

	acc := 0
	cnt := 0
	w := 0

	for i, c := range n.buf {
		if c > maxValue {
			c = maxValue
		}
		if fileBits < t.requestedBits {
			c >>= t.requestedBits - fileBits
		} else if fileBits > t.requestedBits {
			c <<= fileBits - t.requestedBits
		}
		if fileBits == 8 {
			packed[i] = c
			continue
		}
		acc = acc<<fileBits | int(c)
		if cnt += fileBits; cnt == 8 {
			packed[w] = byte(acc)
			w++
			acc = 0
			cnt = 0
		}
	}

	return packed
}

// unpack fills the sample buffer from a packed block, converting from the
// file's to the requested sample size.
func (n *native) unpack(t *Tape, packed []byte) {

	fileBits := t.fileBits
	mask := byte(1<<fileBits - 1)

	for i := range n.buf {
		var c byte
		if fileBits == 8 {
			c = packed[i]
		} else {
			bit := i * fileBits
			c = packed[bit>>3] >> (8 - fileBits - bit&7) & mask
		}
		if fileBits < t.requestedBits {
			c <<= t.requestedBits - fileBits
		} else if fileBits > t.requestedBits {
			c >>= fileBits - t.requestedBits
		}
		n.buf[i] = c
	}
}

//
func (n *native) runOneSample(t *Tape) error {

	ix := t.position & blockMask
	t.output = int(n.buf[ix])

	if t.record {
		in := t.input
		if in < 0 {
			in = 0
		} else if in > 255 {
			in = 255
		}
		n.buf[ix] = byte(in)
		n.dirty = true
	}

	pos := t.position + 1
	if pos >= t.length && !t.record {
		pos = t.length
	}

	var cueErr error
	if t.record && len(n.cues) > 0 {
		if _, found := n.findCuePoint(pos); found {
			saved := t.position
			t.position = pos
			cueErr = n.deleteNearestCuePoint(t)
			t.position = saved
		}
	}

	if err := n.moveTo(t, pos); err != nil {
		return err
	}
	return cueErr
}

// moveTo sets the tape position to pos. Whenever that moves to a different
// block, the current block is written back and the new one read. The move
// completes even if writing back fails.
func (n *native) moveTo(t *Tape, pos int64) error {

	if pos>>12 == t.position>>12 {
		t.position = pos
		return nil
	}

	err := n.flush(t)
	t.position = pos
	n.load(t)
	return err
}

//
func (n *native) seek(t *Tape, pos int64) error {
	if pos > t.length {
		pos = t.length
	}
	return n.moveTo(t, pos)
}

//
func (n *native) seekToCuePoint(t *Tape, forward bool, maxSkip float64) error {

	if cnt := len(n.cues); cnt > 0 {
		ix, _ := n.findCuePoint(t.position)
		c := int64(n.cues[ix])
		switch {
		case c < t.position && !forward, c > t.position && forward:
			return n.seek(t, c)
		case ix > 0 && !forward:
			return n.seek(t, int64(n.cues[ix-1]))
		case ix+1 < cnt && forward:
			return n.seek(t, int64(n.cues[ix+1]))
		}
	}

	if forward {
		return n.seek(t, t.secondsToSamples(t.Position()+maxSkip))
	}
	return n.seek(t, t.secondsToSamples(t.Position()-maxSkip))
}

// findCuePoint returns the index of the last cue point at or before pos, or 0
// if there is none, and whether that cue point is exactly at pos.
func (n *native) findCuePoint(pos int64) (int, bool) {
	p := cuePosition(pos)
	ix := sort.Search(len(n.cues), func(i int) bool { return n.cues[i] > p }) - 1
	if ix < 0 {
		ix = 0
	}
	return ix, len(n.cues) > 0 && n.cues[ix] == p
}

//
func cuePosition(pos int64) uint32 {
	if pos >= noCuePoint-1 {
		return noCuePoint - 1
	}
	return uint32(pos)
}

//
func (n *native) addCuePoint(t *Tape) error {

	if t.readOnly || len(n.cues) >= MaxCuePoints || !n.newFormat {
		return nil
	}

	ix, found := n.findCuePoint(t.position)
	if found {
		return nil
	}

	p := cuePosition(t.position)
	if len(n.cues) > 0 && n.cues[ix] < p {
		ix++
	}
	n.cues = append(n.cues, 0)
	copy(n.cues[ix+1:], n.cues[ix:])
	n.cues[ix] = p

	log.WithFields(log.Fields{
		"tape": t.Name(), "position": p}).Debug("cue point added")

	return n.updateHeader(t)
}

//
func (n *native) deleteNearestCuePoint(t *Tape) error {

	if t.readOnly || len(n.cues) < 1 {
		return nil
	}

	p := int64(cuePosition(t.position))
	ix := 0
	nearest := int64(noCuePoint)
	for i, c := range n.cues {
		diff := int64(c) - p
		if diff < 0 {
			diff = -diff
		}
		if diff >= nearest {
			break
		}
		nearest = diff
		ix = i
	}

	log.WithFields(log.Fields{
		"tape": t.Name(), "position": n.cues[ix]}).Debug("cue point deleted")

	n.cues = append(n.cues[:ix], n.cues[ix+1:]...)
	return n.updateHeader(t)
}

//
func (n *native) deleteAllCuePoints(t *Tape) error {
	if t.readOnly || len(n.cues) < 1 {
		return nil
	}
	n.cues = n.cues[:0]
	log.WithField("tape", t.Name()).Debug("all cue points deleted")
	return n.updateHeader(t)
}

//
func (n *native) updateHeader(t *Tape) error {
	if err := n.writeHeader(t); err != nil {
		return fmt.Errorf("error updating cue point table: %w", err)
	}
	return nil
}

