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

	log "github.com/sirupsen/logrus"
)

/*
	Tape transport commands, with the meaning of their argument:

		play, record, stop, motor-on, motor-off:
			no argument

		seek:		position in seconds
		next:		max number of seconds to wind forward when there is no
		previous:	cue point in the respective direction

		cue-add:	place cue point at current position
		cue-delete:	delete cue point nearest to current position
		cue-clear:	delete all cue points
*/
type TapeCommand string

const (
	TapePlay      TapeCommand = "play"
	TapeRecord    TapeCommand = "record"
	TapeStop      TapeCommand = "stop"
	TapeMotorOn   TapeCommand = "motor-on"
	TapeMotorOff  TapeCommand = "motor-off"
	TapeSeek      TapeCommand = "seek"
	TapeNext      TapeCommand = "next"
	TapePrevious  TapeCommand = "previous"
	TapeCueAdd    TapeCommand = "cue-add"
	TapeCueDelete TapeCommand = "cue-delete"
	TapeCueClear  TapeCommand = "cue-clear"
)

// DefaultMaxSkip is how far next and previous wind the tape at most, in
// seconds, if no other limit is given.
const DefaultMaxSkip = 60.0

//
func ParseTapeCommand(s string) (TapeCommand, error) {
	switch c := TapeCommand(s); c {
	case TapePlay, TapeRecord, TapeStop, TapeMotorOn, TapeMotorOff, TapeSeek,
		TapeNext, TapePrevious, TapeCueAdd, TapeCueDelete, TapeCueClear:
		return c, nil
	}
	return "", fmt.Errorf("unknown tape command: %s", s)
}

// TapeControl runs a tape transport command.
func (d *Daemon) TapeControl(cmd TapeCommand, arg float64) error {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	t := d.tape
	if t == nil {
		return fmt.Errorf("no tape loaded")
	}

	log.WithFields(log.Fields{
		"tape": t.Name(), "command": cmd, "arg": arg}).Info("TAPE")

	switch cmd {

	case TapePlay:
		t.Play()

	case TapeRecord:
		if t.IsReadOnly() {
			return fmt.Errorf("tape is read-only")
		}
		t.Record()

	case TapeStop:
		return t.Stop()

	case TapeMotorOn:
		return t.SetMotorOn(true)

	case TapeMotorOff:
		return t.SetMotorOn(false)

	case TapeSeek:
		return t.Seek(arg)

	case TapeNext, TapePrevious:
		if arg <= 0 {
			arg = DefaultMaxSkip
		}
		return t.SeekToCuePoint(cmd == TapeNext, arg)

	case TapeCueAdd:
		return t.AddCuePoint()

	case TapeCueDelete:
		return t.DeleteNearestCuePoint()

	case TapeCueClear:
		return t.DeleteAllCuePoints()

	default:
		return fmt.Errorf("unknown tape command: %s", cmd)
	}

	return nil
}

// SetTapeParameters changes how sound files are read, for the tape currently
// loaded and for all tapes loaded later on.
func (d *Daemon) SetTapeParameters(channel int, invert, filter bool,
	minFreq, maxFreq float64) {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.config.TapeChannel = channel
	d.config.TapeInvert = invert
	d.config.TapeFilter = filter
	d.config.TapeFilterMin = minFreq
	d.config.TapeFilterMax = maxFreq

	if d.tape != nil {
		d.tape.SetParameters(channel, invert, filter, minFreq, maxFreq)
	}
}

// RunTape advances the tape by n samples, feeding it the constant input
// signal in. It returns the output signal of the last sample.
func (d *Daemon) RunTape(n int, in int) (int, error) {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	t := d.tape
	if t == nil {
		return 0, fmt.Errorf("no tape loaded")
	}

	var ret error
	t.SetInput(in)
	for ix := 0; ix < n; ix++ {
		if err := t.RunOneSample(); err != nil && ret == nil {
			ret = err
		}
	}

	return t.Output(), ret
}
