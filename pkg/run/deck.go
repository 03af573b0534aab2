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
	"net/url"
	"os"
	"strconv"

	"github.com/xelalexv/plus4drive/pkg/daemon"
)

//
func NewDeck() *Deck {

	d := &Deck{}
	d.Runner = *NewRunner(
		`deck [-a|--address {address}] -c|--command {command} [-g|--arg {argument}]
     [--channel {n}] [--invert] [--filter] [--filter-min {Hz}] [--filter-max {Hz}]`,
		"operate the tape deck of the daemon",
		`
Use the deck command to operate the tape deck in the daemon. Commands are:

  play, record, stop, motor-on, motor-off
  seek        go to position given by arg, in seconds
  next        wind to next cue point, at most arg seconds
  previous    wind to previous cue point, at most arg seconds
  cue-add     place cue point at current position
  cue-delete  delete cue point nearest to current position
  cue-clear   delete all cue points
  parameters  set sound file channel, inversion & filter`,
		"", runnerHelpEpilogue, d.Run)

	d.AddBaseSettings()
	d.AddSetting(&d.Command, "command", "c", "", nil, "deck command", true)
	d.AddSetting(&d.Arg, "arg", "g", "", 0.0, "command argument", false)
	d.AddSetting(&d.Channel, "channel", "", "", 0,
		"sound file channel to use", false)
	d.AddSetting(&d.Invert, "invert", "", "", false,
		"invert sound file signal", false)
	d.AddSetting(&d.Filter, "filter", "", "", false,
		"band-pass filter sound file signal", false)
	d.AddSetting(&d.FilterMin, "filter-min", "", "", 500.0,
		"lower filter cutoff frequency in Hz", false)
	d.AddSetting(&d.FilterMax, "filter-max", "", "", 5000.0,
		"upper filter cutoff frequency in Hz", false)

	return d
}

//
type Deck struct {
	Runner
	//
	Command   string
	Arg       float64
	Channel   int
	Invert    bool
	Filter    bool
	FilterMin float64
	FilterMax float64
}

//
func (d *Deck) Run() error {

	var path string

	if d.Command == "parameters" {
		args := url.Values{}
		args.Set("channel", strconv.Itoa(d.Channel))
		args.Set("invert", strconv.FormatBool(d.Invert))
		args.Set("filter", strconv.FormatBool(d.Filter))
		args.Set("min", strconv.FormatFloat(d.FilterMin, 'f', -1, 64))
		args.Set("max", strconv.FormatFloat(d.FilterMax, 'f', -1, 64))
		path = "/tape/parameters?" + args.Encode()

	} else {
		cmd, err := daemon.ParseTapeCommand(d.Command)
		if err != nil {
			return err
		}
		method := "POST"
		path = fmt.Sprintf("/tape/%s?arg=%s", cmd,
			strconv.FormatFloat(d.Arg, 'f', -1, 64))
		resp, err := d.apiCall(method, path, false, nil)
		if err != nil {
			return err
		}
		defer resp.Close()
		fmt.Println()
		_, err = io.Copy(os.Stdout, resp)
		fmt.Println()
		return err
	}

	resp, err := d.apiCall("PUT", path, false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	_, err = io.Copy(os.Stdout, resp)
	return err
}
