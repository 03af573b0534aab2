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
)

//
func NewStatus() *Status {

	s := &Status{}
	s.Runner = *NewRunner(
		"status [-a|--address {address}] [-k|--kind {disk|floppy|tape}]",
		"get daemon status",
		`
Use the status command to show what images are loaded into the daemon, and
the state of the drives. With a kind given, only that drive is shown.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Kind, "kind", "k", "", "", "drive to show", false)

	return s
}

//
type Status struct {
	Runner
	//
	Kind string
}

//
func (s *Status) Run() error {

	path := "/status"
	if s.Kind != "" {
		kind, err := parseKind(s.Kind)
		if err != nil {
			return err
		}
		path = "/" + kind.String()
	}

	resp, err := s.apiCall("GET", path, false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	fmt.Println()
	if _, err := io.Copy(os.Stdout, resp); err != nil {
		return err
	}
	fmt.Println()

	return nil
}
