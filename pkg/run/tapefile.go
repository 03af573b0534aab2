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
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/tape"
)

const wavChunkSize = 4096

//
func NewTapeFile() *TapeFile {

	t := &TapeFile{out: os.Stdout}
	t.Runner = *NewRunner(
		`tape -i|--input {file} [-c|--cue {add|delete|clear}] [-p|--position {seconds}]
     [-o|--output {wav file}] [--sample-rate {Hz}]`,
		"inspect & convert tape files",
		`
Use the tape command to show format, length, and cue points of a tape file.
Cue points of native tape files can be added at, or deleted nearest to the
given position, or cleared altogether. With an output file given, the tape is
converted into a 16 bit mono WAV file. For new native tape files, the sample
rate setting applies.`,
		"", runnerHelpEpilogue, t.Run)

	t.AddLogSettings()
	t.AddSetting(&t.Input, "input", "i", "", nil, "tape file", true)
	t.AddSetting(&t.Cue, "cue", "c", "", "", "cue point operation", false)
	t.AddSetting(&t.Position, "position", "p", "", 0.0,
		"tape position in seconds for cue point operation", false)
	t.AddSetting(&t.Output, "output", "o", "", "",
		"WAV file to convert tape into", false)
	t.AddSetting(&t.SampleRate, "sample-rate", "", "", tape.DefaultSampleRate,
		"sample rate for new native tape files", false)

	return t
}

//
type TapeFile struct {
	Runner
	//
	Input      string
	Cue        string
	Position   float64
	Output     string
	SampleRate int
	//
	fs  afero.Fs
	out io.Writer
}

//
func (t *TapeFile) Run() error {

	if t.fs == nil {
		t.fs = afero.NewOsFs()
	}

	mode := tape.ModeReadOnly
	if t.Cue != "" {
		mode = tape.ModeReadWrite
	}

	tp, err := tape.Open(t.fs, t.Input, mode, t.SampleRate, 8)
	if err != nil {
		return err
	}
	defer tp.Close()

	if t.Cue != "" {
		if err := t.cueOperation(tp); err != nil {
			return err
		}
	}

	fmt.Fprintf(t.out, "\n%s: %s, %d Hz, %d bit, %.1f s",
		tp.Name(), tp.Format(), tp.SampleRate(), tp.FileSampleSize(), tp.Length())
	if tp.IsReadOnly() {
		fmt.Fprint(t.out, ", read-only")
	}
	fmt.Fprintln(t.out)

	if cues := tp.CuePoints(); len(cues) > 0 {
		fmt.Fprintln(t.out, "\ncue points:")
		for ix, c := range cues {
			fmt.Fprintf(t.out, "  %2d: %8.1f s\n",
				ix+1, float64(c)/float64(tp.SampleRate()))
		}
	}
	fmt.Fprintln(t.out)

	if t.Output != "" {
		return t.convert(tp)
	}
	return nil
}

//
func (t *TapeFile) cueOperation(tp *tape.Tape) error {

	if tp.IsReadOnly() {
		return fmt.Errorf("tape file is read-only")
	}

	switch t.Cue {
	case "add":
		if err := tp.Seek(t.Position); err != nil {
			return err
		}
		return tp.AddCuePoint()
	case "delete":
		if err := tp.Seek(t.Position); err != nil {
			return err
		}
		return tp.DeleteNearestCuePoint()
	case "clear":
		return tp.DeleteAllCuePoints()
	}

	return fmt.Errorf("unknown cue point operation: %s", t.Cue)
}

// convert plays the complete tape and writes its signal into the output file
// as 16 bit mono WAV
func (t *TapeFile) convert(tp *tape.Tape) error {

	f, err := t.fs.Create(t.Output)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, tp.SampleRate(), 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: tp.SampleRate()},
		Data:           make([]int, 0, wavChunkSize),
		SourceBitDepth: 16,
	}

	if err := tp.Seek(0); err != nil {
		return err
	}
	tp.Play()
	tp.SetMotorOn(true)

	for n := tp.SampleLength(); n > 0 && !tp.IsEndOfTape(); n-- {
		if err := tp.RunOneSample(); err != nil {
			return err
		}
		buf.Data = append(buf.Data, tp.Output()<<8-32640)
		if len(buf.Data) == wavChunkSize {
			if err := enc.Write(buf); err != nil {
				return err
			}
			buf.Data = buf.Data[:0]
		}
	}

	if len(buf.Data) > 0 {
		if err := enc.Write(buf); err != nil {
			return err
		}
	}

	if err := enc.Close(); err != nil {
		return err
	}

	fmt.Fprintf(t.out, "converted into %s\n\n", t.Output)
	return nil
}
