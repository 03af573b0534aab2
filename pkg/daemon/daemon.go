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

// Package daemon holds the emulated drives and the media loaded into them.
// There is one 1541/1551 style drive taking D64 disks, one 1581 style drive
// with a WD177x controller taking floppy images, and one tape deck.
package daemon

import (
	"fmt"
	"io"
	"io/ioutil"
	"sync"

	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/fdc"
	"github.com/xelalexv/plus4drive/pkg/media/d64"
	"github.com/xelalexv/plus4drive/pkg/media/image"
	"github.com/xelalexv/plus4drive/pkg/tape"

	log "github.com/sirupsen/logrus"
)

// Config holds the settings for the emulated drives.
type Config struct {
	TapeSampleRate int
	TapeBits       int
	TapeIndexLimit int
	TapeChannel    int
	TapeInvert     bool
	TapeFilter     bool
	TapeFilterMin  float64
	TapeFilterMax  float64
	//
	FloppyGeometry fdc.Geometry
	WD1773         bool
	BusyFlagHack   bool
}

// DefaultConfig returns a configuration for a 1-bit tape deck at the default
// sample rate, and a WD1770 based drive detecting floppy geometry from the
// images.
func DefaultConfig() Config {
	return Config{
		TapeSampleRate: tape.DefaultSampleRate,
		TapeBits:       1,
		TapeFilterMin:  500,
		TapeFilterMax:  5000,
	}
}

//
func NewDaemon(fs afero.Fs, cfg Config) *Daemon {

	d := &Daemon{
		fs:     fs,
		config: cfg,
		disk:   d64.New(),
		irq:    &irqLine{},
	}

	d.floppy = fdc.New(d.irq)
	d.floppy.SetWD1773(cfg.WD1773)
	d.floppy.SetBusyFlagHack(cfg.BusyFlagHack)

	return d
}

// Daemon owns the drives. All access goes through its methods, which are
// safe for concurrent use.
type Daemon struct {
	fs     afero.Fs
	config Config
	//
	disk   *d64.Image
	floppy *fdc.WD177x
	irq    *irqLine
	tape   *tape.Tape
	//
	mutex   sync.Mutex
	stopped bool
}

//
type irqLine struct {
	requests int
}

func (i *irqLine) InterruptRequest() {
	i.requests++
}

func (i *irqLine) ClearInterruptRequest() {}

// Load loads the image file at path into the drive matching the image type,
// which is derived from the file name. Compressed images are loaded into
// memory and are write protected.
func (d *Daemon) Load(path string, readOnly bool) (image.Kind, error) {

	store, typ, err := image.Load(d.fs, path, readOnly)
	if err != nil {
		return image.KindUnknown, err
	}

	kind := image.KindOf(typ)
	if err := d.attach(kind, typ, store, readOnly); err != nil {
		store.Close()
		return kind, err
	}

	return kind, nil
}

// LoadData loads the image file called name from r into memory, and then
// into the drive matching the image type. Changes to the image are lost when
// it is ejected.
func (d *Daemon) LoadData(name string, r io.Reader, readOnly bool) (
	image.Kind, error) {

	_, typ, comp := image.SplitNameTypeCompressor(name)

	rd, err := image.NewReader(ioutil.NopCloser(r), comp)
	if err != nil {
		return image.KindUnknown, err
	}
	defer rd.Close()

	data, err := ioutil.ReadAll(rd)
	if err != nil {
		return image.KindUnknown, err
	}

	if rd.Type() != "" {
		typ = rd.Type()
	}
	if rd.Name() != "" && typ != "" {
		name = rd.Name() + "." + typ
	}

	kind := image.KindOf(typ)
	store, err := image.NewMemStore(name, data, readOnly || comp != "")
	if err != nil {
		return kind, err
	}

	if err := d.attach(kind, typ, store, readOnly); err != nil {
		store.Close()
		return kind, err
	}

	return kind, nil
}

// CreateTape creates a new native tape file at path, and loads it into the
// tape deck.
func (d *Daemon) CreateTape(path string) error {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkRunning(); err != nil {
		return err
	}

	t, err := tape.Open(d.fs, path, tape.ModeCreate,
		d.config.TapeSampleRate, d.config.TapeBits)
	if err != nil {
		return err
	}

	d.ejectTape()
	d.tape = t
	return nil
}

// attach hands store over to the drive for kind. Unless an error is
// returned, the drive owns store afterwards.
func (d *Daemon) attach(kind image.Kind, typ string, store image.Store,
	readOnly bool) error {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := d.checkRunning(); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{"image": store.Name(), "kind": kind})

	switch kind {

	case image.KindDisk:
		d.ejectDisk()
		if err := d.disk.SetImageFile(store, readOnly); err != nil {
			return err
		}

	case image.KindFloppy:
		d.ejectFloppy()
		if err := d.floppy.SetDiskImageFile(
			store, readOnly, d.floppyGeometry(typ)); err != nil {
			return err
		}

	case image.KindTape:
		t, err := tape.OpenStore(store, readOnly, d.config.TapeSampleRate,
			d.config.TapeBits, tape.WithTAPIndexLimit(d.config.TapeIndexLimit))
		if err != nil {
			return err
		}
		c := d.config
		t.SetParameters(c.TapeChannel, c.TapeInvert, c.TapeFilter,
			c.TapeFilterMin, c.TapeFilterMax)
		d.ejectTape()
		d.tape = t

	default:
		return fmt.Errorf("unknown image type: %s", store.Name())
	}

	logger.Info("image loaded")
	return nil
}

// floppyGeometry returns the configured floppy geometry. If none is
// configured, D81 images get the 1581 geometry, and for all other images it is
// detected.
func (d *Daemon) floppyGeometry(typ string) fdc.Geometry {
	if d.config.FloppyGeometry == (fdc.Geometry{}) && typ == "d81" {
		return fdc.D81
	}
	return d.config.FloppyGeometry
}

// Eject removes the image from the drive for kind, writing back any pending
// changes. Ejecting from an empty drive is not an error.
func (d *Daemon) Eject(kind image.Kind) error {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	switch kind {
	case image.KindDisk:
		return d.ejectDisk()
	case image.KindFloppy:
		return d.ejectFloppy()
	case image.KindTape:
		return d.ejectTape()
	}

	return fmt.Errorf("unknown drive: %s", kind)
}

//
func (d *Daemon) ejectDisk() error {
	if !d.disk.HasDisk() {
		return nil
	}
	err := d.disk.Close()
	if err != nil {
		log.Warnf("ejecting disk: %v", err)
	}
	return err
}

//
func (d *Daemon) ejectFloppy() error {
	if !d.floppy.HasDisk() {
		return nil
	}
	err := d.floppy.Close()
	if err != nil {
		log.Warnf("ejecting floppy: %v", err)
	}
	return err
}

//
func (d *Daemon) ejectTape() error {
	if d.tape == nil {
		return nil
	}
	name := d.tape.Name()
	err := d.tape.Close()
	d.tape = nil
	if err != nil {
		log.Warnf("ejecting tape: %v", err)
	}
	log.WithField("tape", name).Info("tape ejected")
	return err
}

// Stop ejects all media. After stopping, no more media can be loaded.
func (d *Daemon) Stop() error {

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return nil
	}
	d.stopped = true

	log.Info("daemon stopping")

	var ret error
	for _, eject := range []func() error{
		d.ejectDisk, d.ejectFloppy, d.ejectTape} {
		if err := eject(); err != nil && ret == nil {
			ret = err
		}
	}

	log.Info("daemon stopped")
	return ret
}

//
func (d *Daemon) checkRunning() error {
	if d.stopped {
		return fmt.Errorf("daemon stopped")
	}
	return nil
}
