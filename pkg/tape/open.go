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
	"fmt"

	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/media/image"

	log "github.com/sirupsen/logrus"
)

// Mode selects how a tape file is opened.
type Mode int

const (
	// open read-write, fall back to read-only, create if missing
	ModeReadWriteOrCreate Mode = iota
	// open read-write, fall back to read-only
	ModeReadWrite
	//
	ModeReadOnly
	// create a new native tape file, replacing any existing file
	ModeCreate
)

//
func (m Mode) String() string {
	switch m {
	case ModeReadWriteOrCreate:
		return "read-write-create"
	case ModeReadWrite:
		return "read-write"
	case ModeReadOnly:
		return "read-only"
	case ModeCreate:
		return "create"
	}
	return "invalid"
}

//
type options struct {
	tapIndexLimit int
}

// Option tunes how a tape file is opened.
type Option func(o *options)

// WithTAPIndexLimit limits the seek index of TAP files to the given number
// of seconds. Longer TAP files are cut off at that point. Zero means no limit.
func WithTAPIndexLimit(sec int) Option {
	return func(o *options) {
		if sec >= 0 {
			o.tapIndexLimit = sec
		}
	}
}

// Open opens the tape file name on fs. The format is detected from the file
// contents, in this order: C16 TAP, sound file, native tape file. Files that
// are neither TAP nor sound file are taken as native tape files, with or
// without header. Newly created files are always native tape files, with
// sampleRate samples per second. bits is the sample size of the signals the
// emulated hardware exchanges with the tape.
func Open(fs afero.Fs, name string, mode Mode, sampleRate, bits int,
	opts ...Option) (*Tape, error) {

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := log.WithFields(log.Fields{"tape": name, "mode": mode})

	if mode < ModeReadWriteOrCreate || mode > ModeCreate {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	if mode != ModeCreate {
		store, err := image.Open(fs, name, mode == ModeReadOnly)
		if err == nil {
			t, err := openExisting(store, mode, sampleRate, bits, o)
			if err != nil {
				store.Close()
				return nil, err
			}
			return t, nil
		}
		if mode != ModeReadWriteOrCreate {
			return nil, err
		}
		logger.Debugf("cannot open tape file, creating new one: %v", err)
	}

	store, err := image.Create(fs, name)
	if err != nil {
		return nil, err
	}

	t, err := newTape(store, bits)
	if err == nil {
		err = openNative(t, true, sampleRate)
	}
	if err != nil {
		store.Close()
		if rErr := fs.Remove(name); rErr != nil {
			logger.Warnf("cannot remove incomplete tape file: %v", rErr)
		}
		return nil, err
	}

	logger.WithFields(log.Fields{
		"rate": sampleRate, "bits": bits}).Info("native tape file created")
	return t, nil
}

// OpenStore sets up a tape for the existing file held by store, detecting its
// format the same way Open does. On success, the tape owns store.
func OpenStore(store image.Store, readOnly bool, sampleRate, bits int,
	opts ...Option) (*Tape, error) {

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	mode := ModeReadWrite
	if readOnly || store.IsReadOnly() {
		mode = ModeReadOnly
	}

	t, err := openExisting(store, mode, sampleRate, bits, o)
	if err != nil {
		return nil, err
	}
	if readOnly {
		t.readOnly = true
	}
	return t, nil
}

// openExisting detects the format of the file in store and sets up a tape
// for it.
func openExisting(store image.Store, mode Mode, sampleRate, bits int,
	o *options) (*Tape, error) {

	t, err := newTape(store, bits)
	if err != nil {
		return nil, err
	}

	if ok, old := isTAP(t); ok {
		return t, openTAP(t, old, o.tapIndexLimit)
	}

	if wavFile, mp3File := isSoundFile(t); wavFile || mp3File {
		err := openSound(t, mp3File, mode == ModeReadOnly)
		if err == nil {
			return t, nil
		}
		log.WithField("tape", store.Name()).Warnf(
			"cannot use as sound file, trying as native tape file: %v", err)
		if t, err = newTape(store, bits); err != nil {
			return nil, err
		}
	}

	return t, openNative(t, false, sampleRate)
}
