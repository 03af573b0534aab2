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

package run

import (
	"bytes"
	"testing"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/tape"
)

//
func newTapeFile(t *testing.T, fs afero.Fs, samples []int) {
	t.Helper()

	tp, err := tape.Open(fs, "tape.p4t", tape.ModeCreate, 10000, 8)
	if err != nil {
		t.Fatal(err)
	}

	tp.Record()
	tp.SetMotorOn(true)
	for _, s := range samples {
		tp.SetInput(s)
		if err := tp.RunOneSample(); err != nil {
			t.Fatal(err)
		}
	}
	if err := tp.Close(); err != nil {
		t.Fatal(err)
	}
}

//
func TestTapeFileConvert(t *testing.T) {

	fs := afero.NewMemMapFs()
	newTapeFile(t, fs, []int{0, 255, 128, 1})

	out := new(bytes.Buffer)
	tf := &TapeFile{Input: "tape.p4t", Output: "tape.wav",
		SampleRate: tape.DefaultSampleRate, fs: fs, out: out}
	if err := tf.Run(); err != nil {
		t.Fatal(err)
	}

	tp, err := tape.Open(fs, "tape.p4t", tape.ModeReadOnly, 10000, 8)
	if err != nil {
		t.Fatal(err)
	}
	length := tp.SampleLength()
	tp.Close()

	f, err := fs.Open("tape.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}

	if dec.SampleRate != 10000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("unexpected WAV format: %d Hz, %d channels, %d bit",
			dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if int64(len(buf.Data)) != length {
		t.Fatalf("want %d samples, got %d", length, len(buf.Data))
	}
	for i, want := range []int{-32640, 32640, 128<<8 - 32640, 1<<8 - 32640} {
		if buf.Data[i] != want {
			t.Errorf("sample %d: want %d, got %d", i, want, buf.Data[i])
		}
	}
	if !bytes.Contains(out.Bytes(), []byte("native")) {
		t.Errorf("tape info missing: %s", out.String())
	}
}

//
func TestTapeFileCuePoints(t *testing.T) {

	fs := afero.NewMemMapFs()
	newTapeFile(t, fs, make([]int, 30000))

	out := new(bytes.Buffer)
	tf := &TapeFile{Input: "tape.p4t", Cue: "add", Position: 1.5,
		SampleRate: tape.DefaultSampleRate, fs: fs, out: out}
	if err := tf.Run(); err != nil {
		t.Fatal(err)
	}

	tp, err := tape.Open(fs, "tape.p4t", tape.ModeReadOnly, 10000, 8)
	if err != nil {
		t.Fatal(err)
	}
	cues := tp.CuePoints()
	tp.Close()

	if len(cues) != 1 || cues[0] != 15000 {
		t.Fatalf("unexpected cue points %v", cues)
	}
	if !bytes.Contains(out.Bytes(), []byte("cue points:")) {
		t.Errorf("cue points not listed: %s", out.String())
	}

	tf.Cue = "clear"
	if err := tf.Run(); err != nil {
		t.Fatal(err)
	}
	tf.Cue = "bogus"
	if err := tf.Run(); err == nil {
		t.Error("unknown cue operation accepted")
	}
}
