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

// Package tape emulates a tape deck playing and recording tape image files.
// The deck is driven one sample at a time by the caller, who feeds the input
// signal when recording and picks up the output signal after each sample.
package tape

import (
	"errors"
	"fmt"

	"github.com/xelalexv/plus4drive/pkg/media/image"

	log "github.com/sirupsen/logrus"
)

// Format is the kind of tape image file a Tape is working on.
type Format int

const (
	FormatNative    Format = iota // plus4emu tape file with cue point header
	FormatTAP                     // C16 TAP pulse length file, read-only
	FormatSoundFile               // WAV or MP3 audio
)

//
func (f Format) String() string {
	switch f {
	case FormatNative:
		return "native"
	case FormatTAP:
		return "tap"
	case FormatSoundFile:
		return "sound"
	}
	return "unknown"
}

//
var (
	ErrInvalidSampleSize = errors.New("invalid tape sample size")
	ErrInvalidSampleRate = errors.New("invalid tape sample rate")
	ErrInvalidMode       = errors.New("invalid tape open mode")
	ErrInvalidFile       = errors.New("invalid tape file")
)

const (
	DefaultSampleRate = 24000
	MinSampleRate     = 10000
	MaxSampleRate     = 120000
)

// Tape is a tape image loaded into the deck. Playback, recording and seeking
// are dispatched on the format of the image. Tape is not safe for concurrent
// use.
type Tape struct {
	format Format
	store  image.Store

	sampleRate    int
	fileBits      int
	requestedBits int

	readOnly bool
	playback bool
	record   bool
	motor    bool

	length   int64 // samples
	position int64 // samples

	input  int
	output int

	native *native
	tap    *tap
	sound  *sound
}

// newTape creates the format independent part of a tape. bits is the sample
// size requested by the emulated hardware.
func newTape(store image.Store, bits int) (*Tape, error) {
	switch bits {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleSize, bits)
	}
	return &Tape{
		store:         store,
		sampleRate:    DefaultSampleRate,
		fileBits:      1,
		requestedBits: bits,
		readOnly:      true,
	}, nil
}

// RunOneSample advances the tape by one sample period, if playback is on and
// the motor is running. When recording, the current input signal is written
// to the tape. A returned error reports a failure to write back buffered
// data. The tape has advanced nevertheless, and emulation can carry on.
func (t *Tape) RunOneSample() error {
	if !t.playback || !t.motor {
		return nil
	}
	switch t.format {
	case FormatNative:
		return t.native.runOneSample(t)
	case FormatTAP:
		t.tap.runOneSample(t)
	case FormatSoundFile:
		t.sound.runOneSample(t)
	}
	return nil
}

// SetMotorOn switches the tape motor. Buffered data is written back when the
// motor stops.
func (t *Tape) SetMotorOn(on bool) error {
	t.motor = on
	if !on {
		return t.flush()
	}
	return nil
}

//
func (t *Tape) Play() {
	t.playback = true
	t.record = false
	log.WithField("tape", t.Name()).Debug("play")
}

// Record starts recording. On a read-only tape, this is the same as Play.
func (t *Tape) Record() {
	t.playback = true
	t.record = !t.readOnly
	log.WithFields(log.Fields{
		"tape": t.Name(), "recording": t.record}).Debug("record")
}

// Stop stops playback and recording, and writes back buffered data.
func (t *Tape) Stop() error {
	t.playback = false
	t.record = false
	log.WithField("tape", t.Name()).Debug("stop")
	return t.flush()
}

// Seek positions the tape at sec seconds from the start, clamped to the tape
// length.
func (t *Tape) Seek(sec float64) error {
	log.WithFields(log.Fields{
		"tape": t.Name(), "position": sec}).Debug("seek")
	switch t.format {
	case FormatNative:
		return t.native.seek(t, t.secondsToSamples(sec))
	case FormatTAP:
		t.tap.seek(t, sec)
	case FormatSoundFile:
		t.sound.seek(t, t.secondsToSamples(sec))
	}
	return nil
}

// SeekToCuePoint moves to the next cue point in the given direction. If there
// is none, the tape is wound by at most maxSkip seconds. TAP files have no cue
// points, there rewinding goes to the start and forward is ignored.
func (t *Tape) SeekToCuePoint(forward bool, maxSkip float64) error {
	if maxSkip < 0 {
		maxSkip = 0
	}
	switch t.format {
	case FormatNative:
		return t.native.seekToCuePoint(t, forward, maxSkip)
	case FormatTAP:
		if !forward {
			t.tap.seek(t, 0)
		}
	case FormatSoundFile:
		if forward {
			t.sound.seek(t, t.secondsToSamples(t.Position()+maxSkip))
		} else {
			t.sound.seek(t, t.secondsToSamples(t.Position()-maxSkip))
		}
	}
	return nil
}

// AddCuePoint places a cue point at the current position. Only native tape
// files with header support cue points; for all others this does nothing.
func (t *Tape) AddCuePoint() error {
	if t.format == FormatNative {
		return t.native.addCuePoint(t)
	}
	return nil
}

// DeleteNearestCuePoint removes the cue point closest to the current
// position.
func (t *Tape) DeleteNearestCuePoint() error {
	if t.format == FormatNative {
		return t.native.deleteNearestCuePoint(t)
	}
	return nil
}

//
func (t *Tape) DeleteAllCuePoints() error {
	if t.format == FormatNative {
		return t.native.deleteAllCuePoints(t)
	}
	return nil
}

// CuePoints returns the sample positions of all cue points in ascending
// order.
func (t *Tape) CuePoints() []int64 {
	if t.format != FormatNative {
		return nil
	}
	ret := make([]int64, len(t.native.cues))
	for i, c := range t.native.cues {
		ret[i] = int64(c)
	}
	return ret
}

// SetParameters configures how a sound file is turned into a tape signal: the
// channel to read, whether to invert the signal, and an optional band-pass
// filter between minFreq and maxFreq Hz. It does nothing for other formats.
func (t *Tape) SetParameters(channel int, invert, filter bool,
	minFreq, maxFreq float64) {
	if t.format == FormatSoundFile {
		t.sound.setParameters(t, channel, invert, filter, minFreq, maxFreq)
	}
}

// Close writes back buffered data and closes the image file. The file is
// closed even if writing fails.
func (t *Tape) Close() error {

	if t.store == nil {
		return nil
	}

	err := t.flush()
	if err != nil {
		log.WithField("tape", t.Name()).Warnf(
			"flushing tape before closing: %v", err)
	}

	if cErr := t.store.Close(); cErr != nil && err == nil {
		err = cErr
	}
	t.store = nil

	return err
}

//
func (t *Tape) flush() error {
	switch t.format {
	case FormatNative:
		return t.native.flush(t)
	case FormatSoundFile:
		return t.sound.flush(t)
	}
	return nil
}

//
func (t *Tape) secondsToSamples(sec float64) int64 {
	if sec <= 0 {
		return 0
	}
	return int64(sec*float64(t.sampleRate) + 0.5)
}

//
func (t *Tape) Format() Format {
	return t.format
}

//
func (t *Tape) Name() string {
	if t.store == nil {
		return ""
	}
	return t.store.Name()
}

//
func (t *Tape) SampleRate() int {
	return t.sampleRate
}

// SampleSize returns the number of bits per sample of the input and output
// signals.
func (t *Tape) SampleSize() int {
	return t.requestedBits
}

// FileSampleSize returns the number of bits per sample stored in the file.
func (t *Tape) FileSampleSize() int {
	return t.fileBits
}

//
func (t *Tape) IsReadOnly() bool {
	return t.readOnly
}

//
func (t *Tape) IsPlaybackOn() bool {
	return t.playback
}

//
func (t *Tape) IsRecordOn() bool {
	return t.record
}

//
func (t *Tape) IsMotorOn() bool {
	return t.motor
}

// SetInput sets the signal level to record with the next sample.
func (t *Tape) SetInput(s int) {
	t.input = s
}

// Output returns the signal level read with the last sample.
func (t *Tape) Output() int {
	return t.output
}

// Position returns the tape position in seconds.
func (t *Tape) Position() float64 {
	return float64(t.position) / float64(t.sampleRate)
}

// Length returns the tape length in seconds.
func (t *Tape) Length() float64 {
	return float64(t.length) / float64(t.sampleRate)
}

//
func (t *Tape) SamplePosition() int64 {
	return t.position
}

//
func (t *Tape) SampleLength() int64 {
	return t.length
}

//
func (t *Tape) IsEndOfTape() bool {
	return t.position >= t.length
}
