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
	"testing"

	"github.com/spf13/afero"
)

const tapName = "tape.tap"

//
func tapFile(version byte, pulses ...byte) []byte {
	data := make([]byte, tapHeaderSize, tapHeaderSize+len(pulses))
	copy(data, tapMagic)
	data[len(tapMagic)] = version
	return append(data, pulses...)
}

//
func openTAPFile(t *testing.T, data []byte, bits int, opts ...Option) *Tape {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, tapName, data, 0644); err != nil {
		t.Fatal(err)
	}
	tp, err := Open(fs, tapName, ModeReadWrite, DefaultSampleRate, bits, opts...)
	if err != nil {
		t.Fatalf("opening TAP file: %v", err)
	}
	if tp.Format() != FormatTAP {
		t.Fatalf("TAP file opened as %s", tp.Format())
	}
	return tp
}

//
func TestTAPDecoding(t *testing.T) {

	// 16 ticks per pulse, i.e. one sample per half period
	pulses := make([]byte, 10)
	for i := range pulses {
		pulses[i] = 2
	}

	tp := openTAPFile(t, tapFile(tapNewFormat, pulses...), 8)
	defer tp.Close()

	if !tp.IsReadOnly() || tp.SampleRate() != tapSampleRate {
		t.Fatalf("unexpected TAP tape, read-only %v, rate %d",
			tp.IsReadOnly(), tp.SampleRate())
	}
	if tp.SampleLength() != 11 {
		t.Errorf("want length 11, got %d", tp.SampleLength())
	}

	tp.Record()
	if tp.IsRecordOn() {
		t.Error("recording on TAP file")
	}

	out := playback(t, tp, 10)
	for i, s := range out {
		want := 0
		if i&1 == 1 {
			want = 128
		}
		if s != want {
			t.Fatalf("sample %d: want %d, got %d", i, want, s)
		}
	}

	playback(t, tp, 5)
	if !tp.IsEndOfTape() || tp.Output() != 0 {
		t.Errorf("not at end of tape, position %d", tp.SamplePosition())
	}
}

//
func TestTAPLongPulse(t *testing.T) {

	// 48 ticks low, then 32 ticks high
	tp := openTAPFile(t, tapFile(tapNewFormat, 0, 48, 0, 0, 4, 2, 2), 1)
	defer tp.Close()

	want := []int{0, 0, 0, 1, 1, 0, 1}
	for i, s := range playback(t, tp, len(want)) {
		if s != want[i] {
			t.Fatalf("sample %d: want %d, got %d", i, want[i], s)
		}
	}
}

//
func TestTAPOldFormat(t *testing.T) {

	// full periods of 32 ticks, i.e. 16 ticks per half period
	tp := openTAPFile(t, tapFile(tapOldFormat, 4, 4, 4), 1)
	defer tp.Close()

	// each length read on a falling edge also serves the following high half
	// period, and the end of the file shows only on the next falling edge
	out := playback(t, tp, 8)
	want := []int{0, 1, 0, 1, 0, 1, 1, 0}
	for i, s := range out {
		if s != want[i] {
			t.Fatalf("sample %d: want %d, got %d (%v)", i, want[i], s, out)
		}
	}
}

//
func TestTAPSeek(t *testing.T) {

	pulses := make([]byte, 3*tapSampleRate+100)
	for i := range pulses {
		pulses[i] = 2
	}

	tp := openTAPFile(t, tapFile(tapNewFormat, pulses...), 1)
	defer tp.Close()

	if n := len(tp.tap.fileIndex); n != 4 {
		t.Fatalf("want 4 index entries, got %d", n)
	}

	for _, sec := range []float64{1.5, 2, 0, -1, 2.9} {
		tp.Seek(sec)
		ix := 0
		if sec > 0 {
			ix = int(sec)
		}
		if tp.SamplePosition() != int64(ix*tapSampleRate) {
			t.Fatalf("seek to %.1f ended at %d", sec, tp.SamplePosition())
		}
		out := playback(t, tp, 4)
		if out[0] != 0 || out[1] != 1 || out[2] != 0 || out[3] != 1 {
			t.Fatalf("unexpected signal after seek to %.1f: %v", sec, out)
		}
	}

	tp.Seek(100)
	if tp.SamplePosition() != 3*tapSampleRate {
		t.Errorf("seek beyond index ended at %d", tp.SamplePosition())
	}

	tp.SeekToCuePoint(true, 10)
	if tp.SamplePosition() != 3*tapSampleRate {
		t.Errorf("forward cue point seek moved TAP tape to %d",
			tp.SamplePosition())
	}
	tp.SeekToCuePoint(false, 10)
	if tp.SamplePosition() != 0 {
		t.Errorf("rewinding TAP tape ended at %d", tp.SamplePosition())
	}

	tp.AddCuePoint()
	if tp.CuePoints() != nil {
		t.Error("cue point on TAP tape")
	}
}

//
func TestTAPIndexLimit(t *testing.T) {

	pulses := make([]byte, 3*tapSampleRate)
	for i := range pulses {
		pulses[i] = 2
	}

	tp := openTAPFile(t, tapFile(tapNewFormat, pulses...), 1,
		WithTAPIndexLimit(2))
	defer tp.Close()

	if n := len(tp.tap.fileIndex); n != 2 {
		t.Errorf("want 2 index entries, got %d", n)
	}
	if tp.SampleLength() != 2*tapSampleRate {
		t.Errorf("want truncated length, got %d", tp.SampleLength())
	}

	// playback stops at the truncated end
	out := playback(t, tp, 2*tapSampleRate+tapSampleRate/2)
	if tp.SamplePosition() != tp.SampleLength() || !tp.IsEndOfTape() {
		t.Errorf("played beyond truncated end: position %d, length %d",
			tp.SamplePosition(), tp.SampleLength())
	}
	for i := 2 * tapSampleRate; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("signal after truncated end at sample %d", i)
		}
	}

	// seeking back still works, and the end stays in place
	tp.Seek(1)
	if tp.SamplePosition() != tapSampleRate || tp.IsEndOfTape() {
		t.Errorf("seek into truncated tape ended at %d", tp.SamplePosition())
	}
	playback(t, tp, tapSampleRate+10)
	if tp.SamplePosition() != tp.SampleLength() {
		t.Errorf("played beyond truncated end after seek: %d",
			tp.SamplePosition())
	}
}

//
func TestNotTAP(t *testing.T) {

	fs := afero.NewMemMapFs()
	data := tapFile(3, 1, 2, 3)
	if err := afero.WriteFile(fs, tapName, data, 0644); err != nil {
		t.Fatal(err)
	}
	tp, err := Open(fs, tapName, ModeReadOnly, DefaultSampleRate, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Close()
	if tp.Format() != FormatNative {
		t.Errorf("unknown TAP version opened as %s", tp.Format())
	}
}
