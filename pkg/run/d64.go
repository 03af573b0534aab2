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
	"strings"

	"github.com/xelalexv/plus4drive/pkg/daemon"
	"github.com/xelalexv/plus4drive/pkg/media/image"
)

//
func NewD64() *D64 {

	d := &D64{out: os.Stdout}
	d.Runner = *NewRunner(
		"d64 -i|--input {file} [-t|--track {track}] [-d|--data]",
		"check D64 disk image",
		`
Use the d64 command to check a D64 image the way the drive head sees it. Each
track is encoded to GCR and decoded again, and the state of each sector is
reported. Without a track, all tracks are checked.`,
		"", runnerHelpEpilogue, d.Run)

	d.AddLogSettings()
	d.AddSetting(&d.Input, "input", "i", "", nil, "D64 image file", true)
	d.AddSetting(&d.Track, "track", "t", "", 0, "track to check", false)
	d.AddSetting(&d.Data, "data", "d", "", false,
		"hex dump of decoded track data", false)

	return d
}

//
type D64 struct {
	Runner
	//
	Input string
	Track int
	Data  bool
	//
	out io.Writer
}

//
func (d *D64) Run() error {

	dmn, err := localDaemon(d.Input, image.KindDisk, daemon.DefaultConfig())
	if err != nil {
		return err
	}
	defer dmn.Stop()

	st := dmn.DiskStatus()
	fmt.Fprintf(d.out, "\n%s: %d tracks, error table: %v\n\n",
		st.Image, st.Tracks, st.ErrorTable)

	first, last := 1, st.Tracks
	if d.Track != 0 {
		first, last = d.Track, d.Track
	}

	bad := 0
	for track := first; track <= last; track++ {

		rep, err := dmn.DiskTrack(track, d.Data)
		if err != nil {
			return err
		}

		var faults []string
		for s, e := range rep.Errors {
			if e != "ok" && e != "none" {
				faults = append(faults, fmt.Sprintf("%d: %s", s, e))
			}
		}
		bad += len(faults)

		fmt.Fprintf(d.out, "track %2d: %2d of %2d sectors decoded",
			rep.Track, rep.Decoded, rep.Sectors)
		if len(faults) > 0 {
			fmt.Fprintf(d.out, ", %s", strings.Join(faults, ", "))
		}
		fmt.Fprintln(d.out)

		if d.Data {
			fmt.Fprintln(d.out)
			dumper := hex.Dumper(d.out)
			dumper.Write(rep.Data)
			dumper.Close()
			fmt.Fprintln(d.out)
		}
	}

	fmt.Fprintf(d.out, "\n%d bad sectors\n\n", bad)
	return nil
}
