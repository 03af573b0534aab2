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
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/media/image"
)

//
func TestMotorOffWritesBack(t *testing.T) {

	fs := afero.NewMemMapFs()
	tp := createNative(t, fs, DefaultSampleRate, 8)
	defer tp.Close()

	tp.Record()
	tp.SetMotorOn(true)
	for i := 0; i < 100; i++ {
		tp.SetInput(0x5A)
		tp.RunOneSample()
	}

	if data, _ := afero.ReadFile(fs, nativeName); len(data) != nativeHeaderSize {
		t.Fatalf("samples written before motor stopped, size %d", len(data))
	}

	if err := tp.SetMotorOn(false); err != nil {
		t.Fatal(err)
	}
	if !tp.IsRecordOn() {
		t.Error("stopping the motor ended recording")
	}

	data, err := afero.ReadFile(fs, nativeName)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != nativeHeaderSize+blockSamples {
		t.Fatalf("want file size %d, got %d",
			nativeHeaderSize+blockSamples, len(data))
	}
	for i := 0; i < 100; i++ {
		if data[nativeHeaderSize+i] != 0x5A {
			t.Fatalf("sample %d not written", i)
		}
	}

	// motor off halts the tape
	pos := tp.SamplePosition()
	tp.RunOneSample()
	if tp.SamplePosition() != pos {
		t.Error("tape moved with motor off")
	}
}

//
func TestPositionInSeconds(t *testing.T) {

	tp := createNative(t, afero.NewMemMapFs(), 10000, 1)
	defer tp.Close()
	record(t, tp, make([]int, 25000))

	tp.Seek(1.25)
	if tp.SamplePosition() != 12500 || tp.Position() != 1.25 {
		t.Errorf("position %d, %f s", tp.SamplePosition(), tp.Position())
	}
	if tp.Length() != float64(7*blockSamples)/10000 {
		t.Errorf("length %f s", tp.Length())
	}

	tp.Seek(-3)
	if tp.SamplePosition() != 0 {
		t.Errorf("negative seek ended at %d", tp.SamplePosition())
	}
}

//
func TestNames(t *testing.T) {
	for f, want := range map[Format]string{
		FormatNative: "native", FormatTAP: "tap",
		FormatSoundFile: "sound", Format(7): "unknown",
	} {
		if f.String() != want {
			t.Errorf("format %d: want %s, got %s", f, want, f)
		}
	}
	for m, want := range map[Mode]string{
		ModeReadWriteOrCreate: "read-write-create", ModeReadWrite: "read-write",
		ModeReadOnly: "read-only", ModeCreate: "create", Mode(-1): "invalid",
	} {
		if m.String() != want {
			t.Errorf("mode %d: want %s, got %s", m, want, m)
		}
	}
}

//
func TestOpenStore(t *testing.T) {

	fs := afero.NewMemMapFs()
	tp := createNative(t, fs, DefaultSampleRate, 8)
	record(t, tp, []int{1, 2, 3})
	if err := tp.Close(); err != nil {
		t.Fatal(err)
	}

	store, err := image.Open(fs, nativeName, false)
	if err != nil {
		t.Fatal(err)
	}

	tp, err = OpenStore(store, true, DefaultSampleRate, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer tp.Close()

	if tp.Format() != FormatNative || !tp.IsReadOnly() {
		t.Errorf("unexpected tape, format %s, read-only %v",
			tp.Format(), tp.IsReadOnly())
	}
	if got := playback(t, tp, 3); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("unexpected samples %v", got)
	}
}

// failingStore passes through to an image store until told to fail writes
type failingStore struct {
	image.Store
	failWrites bool
}

//
func (s *failingStore) WriteAt(p []byte, off int64) (int, error) {
	if s.failWrites {
		return 0, &image.IOError{
			Op: "write", Path: s.Name(), Err: errors.New("device gone")}
	}
	return s.Store.WriteAt(p, off)
}

//
func openFailing(t *testing.T, fs afero.Fs) (*Tape, *failingStore) {
	t.Helper()
	s, err := image.Open(fs, nativeName, false)
	if err != nil {
		t.Fatal(err)
	}
	store := &failingStore{Store: s}
	tp, err := OpenStore(store, false, DefaultSampleRate, 8)
	if err != nil {
		t.Fatal(err)
	}
	return tp, store
}

//
func TestWriteFailureKeepsTapeMoving(t *testing.T) {

	fs := afero.NewMemMapFs()
	if err := createNative(t, fs, DefaultSampleRate, 8).Close(); err != nil {
		t.Fatal(err)
	}

	tp, store := openFailing(t, fs)
	defer tp.Close()

	tp.Record()
	tp.SetMotorOn(true)
	for i := 0; i < blockSamples-1; i++ {
		tp.SetInput(0x33)
		if err := tp.RunOneSample(); err != nil {
			t.Fatal(err)
		}
	}

	// crossing into the next block writes back the recorded one
	store.failWrites = true
	tp.SetInput(0x33)
	if err := tp.RunOneSample(); !errors.Is(err, image.ErrHostIO) {
		t.Errorf("want host I/O error, got %v", err)
	}
	if tp.SamplePosition() != blockSamples {
		t.Errorf("tape did not advance, position %d", tp.SamplePosition())
	}

	// emulation carries on
	tp.SetInput(0x44)
	if err := tp.RunOneSample(); err != nil {
		t.Errorf("error without block change: %v", err)
	}
	if tp.SamplePosition() != blockSamples+1 {
		t.Errorf("unexpected position %d", tp.SamplePosition())
	}

	// seek writes back the modified block, and moves regardless
	if err := tp.Seek(0); !errors.Is(err, image.ErrHostIO) {
		t.Errorf("want host I/O error from seek, got %v", err)
	}
	if tp.SamplePosition() != 0 {
		t.Errorf("seek did not move tape, position %d", tp.SamplePosition())
	}

	// nothing to write back any more
	if err := tp.Stop(); err != nil {
		t.Errorf("stop after failed write: %v", err)
	}
	store.failWrites = false
}
