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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/control"
	"github.com/xelalexv/plus4drive/pkg/daemon"
	"github.com/xelalexv/plus4drive/pkg/fdc"

	log "github.com/sirupsen/logrus"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		"serve [-a|--address {address}] [-r|--repo {repo dir}] [-x|--index {index dir}]",
		"start the Plus4Drive daemon",
		`
Use the serve command to start the daemon with its drives and API server. Images
given with --disk, --floppy, and --tape are loaded on startup.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Repo, "repo", "r", "", "",
		"image repository directory", false)
	s.AddSetting(&s.Index, "index", "x", "", "",
		"search index directory; enables search when repository is set", false)

	s.AddSetting(&s.Disk, "disk", "", "", "", "D64 image to load", false)
	s.AddSetting(&s.Floppy, "floppy", "", "", "", "floppy image to load", false)
	s.AddSetting(&s.Tape, "tape", "", "", "", "tape image to load", false)
	s.AddSetting(&s.ReadOnly, "readonly", "", "", false,
		"load startup images write protected", false)

	s.addTapeSettings(&s.Runner)
	s.addFloppySettings(&s.Runner)

	return s
}

//
type Serve struct {
	Runner
	DriveSettings
	//
	Repo     string
	Index    string
	Disk     string
	Floppy   string
	Tape     string
	ReadOnly bool
}

//
func (s *Serve) Run() error {

	d := daemon.NewDaemon(afero.NewOsFs(), s.config())

	for _, img := range []string{s.Disk, s.Floppy, s.Tape} {
		if img == "" {
			continue
		}
		if _, err := d.Load(img, s.ReadOnly); err != nil {
			d.Stop()
			return err
		}
	}

	api := control.NewAPIServer(s.Address, s.Repo, s.Index, d)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	errs := make(chan error, 1)
	go func() {
		errs <- api.Serve()
	}()

	var err error
	select {
	case sg := <-sig:
		log.WithField("signal", sg).Info("shutting down")
	case err = <-errs:
	}

	if e := api.Stop(); e != nil {
		log.Errorf("stopping API server: %v", e)
	}
	if e := d.Stop(); e != nil && err == nil {
		err = e
	}

	return err
}

// DriveSettings are the emulation parameters of the drives.
type DriveSettings struct {
	SampleRate    int
	Bits          int
	TAPIndexLimit int
	Channel       int
	Invert        bool
	Filter        bool
	FilterMin     float64
	FilterMax     float64
	//
	WD1773       bool
	BusyFlagHack bool
	Tracks       int
	Sides        int
	Sectors      int
}

// addTapeSettings adds the tape deck settings to runner r
func (ds *DriveSettings) addTapeSettings(r *Runner) {
	def := daemon.DefaultConfig()
	r.AddSetting(&ds.SampleRate, "tape.sample-rate", "", "", def.TapeSampleRate,
		"sample rate for new tape files, 10000 to 120000", false)
	r.AddSetting(&ds.Bits, "tape.bits", "", "", def.TapeBits,
		"sample size of the tape signal: 1, 2, 4, or 8", false)
	r.AddSetting(&ds.TAPIndexLimit, "tape.tap-index-limit", "", "", 0,
		"seek index length in seconds for TAP files, 0 for no limit", false)
	r.AddSetting(&ds.Channel, "tape.channel", "", "", 0,
		"channel to use from sound files", false)
	r.AddSetting(&ds.Invert, "tape.invert", "", "", false,
		"invert sound file signal", false)
	r.AddSetting(&ds.Filter, "tape.filter", "", "", false,
		"band-pass filter sound file signal", false)
	r.AddSetting(&ds.FilterMin, "tape.filter-min", "", "", def.TapeFilterMin,
		"lower corner frequency of band-pass filter in Hz", false)
	r.AddSetting(&ds.FilterMax, "tape.filter-max", "", "", def.TapeFilterMax,
		"upper corner frequency of band-pass filter in Hz", false)
}

//
func (ds *DriveSettings) addFloppySettings(r *Runner) {
	r.AddSetting(&ds.WD1773, "fdc.wd1773", "", "", false,
		"emulate WD1773 instead of WD1770", false)
	r.AddSetting(&ds.BusyFlagHack, "fdc.busy-hack", "", "", false,
		"report busy on every other status read", false)
	r.AddSetting(&ds.Tracks, "fdc.tracks", "", "", 0,
		"floppy tracks, 0 to detect", false)
	r.AddSetting(&ds.Sides, "fdc.sides", "", "", 0,
		"floppy sides, 0 to detect", false)
	r.AddSetting(&ds.Sectors, "fdc.sectors", "", "", 0,
		"floppy sectors per track, 0 to detect", false)
}

//
func (ds *DriveSettings) config() daemon.Config {
	return daemon.Config{
		TapeSampleRate: ds.SampleRate,
		TapeBits:       ds.Bits,
		TapeIndexLimit: ds.TAPIndexLimit,
		TapeChannel:    ds.Channel,
		TapeInvert:     ds.Invert,
		TapeFilter:     ds.Filter,
		TapeFilterMin:  ds.FilterMin,
		TapeFilterMax:  ds.FilterMax,
		FloppyGeometry: fdc.Geometry{
			Tracks:          ds.Tracks,
			Sides:           ds.Sides,
			SectorsPerTrack: ds.Sectors,
		},
		WD1773:       ds.WD1773,
		BusyFlagHack: ds.BusyFlagHack,
	}
}
