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

	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/daemon"
	"github.com/xelalexv/plus4drive/pkg/media/image"
)

// localDaemon creates a daemon working on the local file system, and loads
// the image file into it, write protected. The image has to be of kind.
func localDaemon(file string, kind image.Kind,
	cfg daemon.Config) (*daemon.Daemon, error) {

	if _, typ, _ := image.SplitNameTypeCompressor(file); image.KindOf(typ) != kind {
		return nil, fmt.Errorf("'%s' is not a %s image", file, kind)
	}

	d := daemon.NewDaemon(afero.NewOsFs(), cfg)
	if _, err := d.Load(file, true); err != nil {
		d.Stop()
		return nil, err
	}

	return d, nil
}
