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

package fdc

import (
	"encoding/binary"
	"fmt"

	"github.com/xelalexv/plus4drive/pkg/media/image"

	log "github.com/sirupsen/logrus"
)

// Geometry describes the layout of a floppy image. Sectors are always 512
// bytes, and are stored track by track, with both sides of a track next to
// each other.
type Geometry struct {
	Tracks          int `json:"tracks"`
	Sides           int `json:"sides"`
	SectorsPerTrack int `json:"sectors"`
}

//
func (g Geometry) String() string {
	return fmt.Sprintf("%d/%d/%d", g.Tracks, g.Sides, g.SectorsPerTrack)
}

// Sectors returns the total number of sectors.
func (g Geometry) Sectors() int {
	return g.Tracks * g.Sides * g.SectorsPerTrack
}

// Size returns the image size in bytes.
func (g Geometry) Size() int64 {
	return int64(g.Sectors()) * SectorSize
}

//
func (g Geometry) IsValid() bool {
	return validTracks(g.Tracks) && validSides(g.Sides) &&
		validSectorsPerTrack(g.SectorsPerTrack)
}

func validTracks(n int) bool          { return n >= 1 && n <= MaxTracks }
func validSides(n int) bool           { return n >= 1 && n <= MaxSides }
func validSectorsPerTrack(n int) bool { return n >= 1 && n <= MaxSectorsPerTrack }

// D81 is the geometry of a 1581 disk.
var D81 = Geometry{Tracks: 80, Sides: 2, SectorsPerTrack: 10}

// DetectGeometry completes the geometry of the image in store. Valid values in
// g are taken as given. If exactly one of them is missing, it is derived from
// the image size. Anything still missing is taken from the boot sector of a
// FAT file system, if there is one. The resulting geometry has to match the
// image size exactly. Errors caused by the geometry wrap
// image.ErrInvalidGeometry.
func DetectGeometry(store image.Store, g Geometry) (Geometry, error) {

	logger := log.WithFields(log.Fields{"image": store.Name(), "geometry": g})

	size, err := store.Size()
	if err != nil {
		return g, err
	}
	if size > int64(MaxTracks*MaxSides*MaxSectorsPerTrack)*SectorSize {
		size = -1
	}
	nSectors := size / SectorSize

	tracksOK := validTracks(g.Tracks)
	sidesOK := validSides(g.Sides)
	sptOK := validSectorsPerTrack(g.SectorsPerTrack)

	if nSectors > 0 {
		switch {
		case !tracksOK:
			if sidesOK && sptOK {
				g.Tracks = int(nSectors / int64(g.Sides*g.SectorsPerTrack))
				tracksOK = true
			}
		case !sidesOK:
			if sptOK {
				g.Sides = int(nSectors / int64(g.Tracks*g.SectorsPerTrack))
				sidesOK = true
			}
		case !sptOK:
			if sidesOK {
				g.SectorsPerTrack = int(nSectors / int64(g.Tracks*g.Sides))
				sptOK = true
			}
		}
	}

	if !(tracksOK && sidesOK && sptOK) {
		if boot, err := readBootSector(store); err != nil {
			logger.Debugf("no boot sector: %v", err)
		} else {
			g = geometryFromBootSector(boot, g, tracksOK, sidesOK, sptOK)
			logger.WithField("detected", g).Debug("geometry from FAT boot sector")
		}
	}

	if !g.IsValid() {
		return g, fmt.Errorf("%w: cannot determine size of disk image",
			image.ErrInvalidGeometry)
	}

	if size != g.Size() {
		return g, fmt.Errorf(
			"%w: disk image size %d does not match geometry %s",
			image.ErrInvalidGeometry, size, g)
	}

	return g, nil
}

//
func readBootSector(store image.Store) ([]byte, error) {
	ss, err := image.NewSectorStore(store, SectorSize)
	if err != nil {
		return nil, err
	}
	boot := make([]byte, SectorSize)
	if err := ss.ReadSector(0, boot); err != nil {
		return nil, err
	}
	return boot, nil
}

// geometryFromBootSector fills in the parameters not yet known from a FAT
// BIOS parameter block
func geometryFromBootSector(boot []byte, g Geometry,
	tracksOK, sidesOK, sptOK bool) Geometry {

	total := int64(binary.LittleEndian.Uint16(boot[0x13:]))
	if total == 0 {
		total = int64(binary.LittleEndian.Uint32(boot[0x20:]))
	}

	if !sidesOK {
		g.Sides = int(binary.LittleEndian.Uint16(boot[0x1A:]))
	}
	if !sptOK {
		g.SectorsPerTrack = int(binary.LittleEndian.Uint16(boot[0x18:]))
	}
	if !tracksOK {
		if validSides(g.Sides) && validSectorsPerTrack(g.SectorsPerTrack) &&
			total >= 1 && total <= MaxTracks*MaxSides*MaxSectorsPerTrack {
			g.Tracks = int(total / int64(g.Sides*g.SectorsPerTrack))
		}
	}

	return g
}
