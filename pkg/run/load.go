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
	"path/filepath"
	"strings"

	"github.com/xelalexv/plus4drive/pkg/media/image"
	"github.com/xelalexv/plus4drive/pkg/repo"
)

//
func NewLoad() *Load {

	l := &Load{}
	l.Runner = *NewRunner(
		"load [-a|--address {address}] -i|--input {file|repo://...|http(s)://...} [-r|--readonly] [-c|--create]",
		"load image into daemon",
		`
Use the load command to load a disk, floppy, or tape image into the daemon.
Which drive gets the image is decided by the image type. Local files are
uploaded to the daemon, while repo:// and http(s):// references are resolved
by the daemon itself.`,
		"", runnerHelpEpilogue, l.Run)

	l.AddBaseSettings()
	l.AddSetting(&l.Input, "input", "i", "", nil,
		"image file or reference to load", true)
	l.AddSetting(&l.ReadOnly, "readonly", "r", "", false,
		"write protect the loaded image", false)
	l.AddSetting(&l.Create, "create", "c", "", false,
		"create new tape file in daemon repo", false)

	return l
}

//
type Load struct {
	Runner
	//
	Input    string
	ReadOnly bool
	Create   bool
}

//
func (l *Load) Run() error {

	kind, err := kindOf(l.Input)
	if err != nil {
		return err
	}

	args := url.Values{}
	if l.ReadOnly {
		args.Set("readonly", "true")
	}

	var body io.Reader

	if isRemoteRef(l.Input) {
		args.Set("ref", l.Input)
		if l.Create {
			if kind != image.KindTape || !repo.IsRepoRef(l.Input) {
				return fmt.Errorf("only tapes in the repo can be created")
			}
			args.Set("create", "true")
		}

	} else {
		if l.Create {
			return fmt.Errorf("only tapes in the repo can be created")
		}
		f, err := os.Open(l.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		body = f
		args.Set("name", filepath.Base(l.Input))
	}

	resp, err := l.apiCall("PUT",
		fmt.Sprintf("/%s?%s", kind, args.Encode()), false, body)
	if err != nil {
		return err
	}
	defer resp.Close()

	_, err = io.Copy(os.Stdout, resp)
	return err
}

//
func NewEject() *Eject {

	e := &Eject{}
	e.Runner = *NewRunner(
		"eject [-a|--address {address}] -k|--kind {disk|floppy|tape}",
		"eject image from daemon",
		`
Use the eject command to remove the disk, floppy, or tape image from the
daemon. Pending changes are written back before the image is closed.`,
		"", runnerHelpEpilogue, e.Run)

	e.AddBaseSettings()
	e.AddSetting(&e.Kind, "kind", "k", "", nil,
		"kind of image to eject", true)

	return e
}

//
type Eject struct {
	Runner
	//
	Kind string
}

//
func (e *Eject) Run() error {

	kind, err := parseKind(e.Kind)
	if err != nil {
		return err
	}

	resp, err := e.apiCall("DELETE", "/"+kind.String(), false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	_, err = io.Copy(os.Stdout, resp)
	return err
}

//
func isRemoteRef(ref string) bool {
	return repo.IsRepoRef(ref) ||
		strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// kindOf determines the kind of image from its name
func kindOf(name string) (image.Kind, error) {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Path != "" {
		name = u.Path
	}
	_, typ, _ := image.SplitNameTypeCompressor(name)
	if k := image.KindOf(typ); k != image.KindUnknown {
		return k, nil
	}
	return image.KindUnknown, fmt.Errorf("unsupported image type: '%s'", name)
}

//
func parseKind(kind string) (image.Kind, error) {
	for _, k := range []image.Kind{
		image.KindDisk, image.KindFloppy, image.KindTape} {
		if strings.EqualFold(kind, k.String()) {
			return k, nil
		}
	}
	return image.KindUnknown, fmt.Errorf("unknown image kind: '%s'", kind)
}
