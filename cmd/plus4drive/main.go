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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xelalexv/plus4drive/pkg/run"
	"github.com/xelalexv/plus4drive/pkg/util"

	log "github.com/sirupsen/logrus"
)

//
func main() {

	root := &cobra.Command{
		Use:   "plus4drive",
		Short: "Commodore disk & tape media emulator",
		Long: `
plus4drive emulates GCR disks, WD177x floppies, and tape decks for Commodore
8-bit machines. Run the serve command to start the daemon, and use the other
commands to control it, or to inspect image files locally.`,
		Version:       util.Plus4DriveVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(fmt.Sprintf("plus4drive %s\n", util.Plus4DriveVersion))

	for _, c := range []*cobra.Command{
		run.NewServe().Command(),
		run.NewLoad().Command(),
		run.NewEject().Command(),
		run.NewStatus().Command(),
		run.NewDeck().Runner.Command(),
		run.NewSearch().Command(),
		run.NewVersion().Command(),
		run.NewD64().Command(),
		run.NewFloppy().Command(),
		run.NewTapeFile().Command(),
	} {
		root.AddCommand(c)
	}

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
