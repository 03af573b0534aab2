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
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/xelalexv/plus4drive/pkg/fdc"
	"github.com/xelalexv/plus4drive/pkg/media/image"
)

//
func NewFloppy() *Floppy {

	f := &Floppy{out: os.Stdout}
	f.Runner = *NewRunner(
		`floppy -i|--input {file} [-t|--track {track}] [-s|--side {side}] [-e|--sector {sector}]
      [--fdc-tracks {n}] [--fdc-sides {n}] [--fdc-sectors {n}]`,
		"check floppy image",
		`
Use the floppy command to show the geometry of a floppy image as the WD177x
controller sees it. With a sector given, that sector is read through the
controller and dumped. Sector numbers start at 1.`,
		"", runnerHelpEpilogue, f.Run)

	f.AddLogSettings()
	f.AddSetting(&f.Input, "input", "i", "", nil, "floppy image file", true)
	f.AddSetting(&f.Track, "track", "t", "", 0, "track to read from", false)
	f.AddSetting(&f.Side, "side", "s", "", 0, "side to read from", false)
	f.AddSetting(&f.Sector, "sector", "e", "", 0, "sector to dump", false)
	f.addFloppySettings(&f.Runner)

	return f
}

//
type Floppy struct {
	Runner
	DriveSettings
	//
	Input  string
	Track  int
	Side   int
	Sector int
	//
	out io.Writer
}

//
func (f *Floppy) Run() error {

	d, err := localDaemon(f.Input, image.KindFloppy, f.config())
	if err != nil {
		return err
	}
	defer d.Stop()

	st := d.FloppyStatus()
	fmt.Fprintf(f.out, "\n%s: %s\n", st.Image, st.Geometry)

	if f.Sector == 0 {
		fmt.Fprintln(f.out)
		return nil
	}

	data, status, err := d.FloppySector(f.Track, f.Side, f.Sector)
	if err != nil {
		return err
	}

	fmt.Fprintf(f.out, "\ntrack %d, side %d, sector %d: status %02X\n\n",
		f.Track, f.Side, f.Sector, status)

	if status&(fdc.StatusRecordNotFound|fdc.StatusCRCError|
		fdc.StatusSeekError) != 0 {
		return fmt.Errorf("cannot read sector")
	}

	dumper := hex.Dumper(f.out)
	dumper.Write(data)
	dumper.Close()
	fmt.Fprintln(f.out)

	return nil
}
