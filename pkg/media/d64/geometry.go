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

package d64

const (
	// MinTracks is the number of tracks of a standard disk image
	MinTracks = 35
	// MaxTracks is the highest track number an image may have
	MaxTracks = 42
	// MaxHeadTrack is the highest track the head can be moved to
	MaxHeadTrack = 42

	sectorSize       = 256
	sectorsStandard  = 683
	sectorsExtension = 17
)

// offset of each track's first sector within the image file; the entry after
// the last track of an image is also where its error table starts
var trackOffsetTable = [44]int{
	-1, 0, 5376, 10752, 16128, 21504, 26880, 32256,
	37632, 43008, 48384, 53760, 59136, 64512, 69888, 75264,
	80640, 86016, 91392, 96256, 101120, 105984, 110848, 115712,
	120576, 125440, 130048, 134656, 139264, 143872, 148480, 153088,
	157440, 161792, 166144, 170496, 174848, 179200, 183552, 187904,
	192256, 196608, 200960, 205312,
}

var sectorsPerTrackTable = [44]int{
	0, 21, 21, 21, 21, 21, 21, 21,
	21, 21, 21, 21, 21, 21, 21, 21,
	21, 21, 19, 19, 19, 19, 19, 19,
	19, 18, 18, 18, 18, 18, 18, 17,
	17, 17, 17, 17, 17, 17, 17, 17,
	17, 17, 17, 17,
}

// GCR bytes per track
var trackSizeTable = [44]int{
	7692, 7692, 7692, 7692, 7692, 7692, 7692, 7692,
	7692, 7692, 7692, 7692, 7692, 7692, 7692, 7692,
	7692, 7692, 7143, 7143, 7143, 7143, 7143, 7143,
	7143, 6667, 6667, 6667, 6667, 6667, 6667, 6250,
	6250, 6250, 6250, 6250, 6250, 6250, 6250, 6250,
	6250, 6250, 6250, 6250,
}

// number of 4 MHz cycles per bit
var trackSpeedTable = [44]byte{
	13, 13, 13, 13, 13, 13, 13, 13,
	13, 13, 13, 13, 13, 13, 13, 13,
	13, 13, 14, 14, 14, 14, 14, 14,
	14, 15, 15, 15, 15, 15, 15, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16,
}

// SectorsPerTrack returns the number of sectors on track, 0 for tracks out of
// range.
func SectorsPerTrack(track int) int {
	if track < 1 || track > MaxHeadTrack {
		return 0
	}
	return sectorsPerTrackTable[track]
}

// SectorIndex returns the zero-based index of a sector within an image, or -1
// if there is no such sector.
func SectorIndex(track, sector int) int {
	if sector < 0 || sector >= SectorsPerTrack(track) {
		return -1
	}
	return trackOffsetTable[track]/sectorSize + sector
}

// ImageSize returns the size in bytes of an image with the given number of
// tracks, with or without error table.
func ImageSize(tracks int, withErrors bool) int {
	if tracks < MinTracks || tracks > MaxTracks {
		return 0
	}
	sectors := trackOffsetTable[tracks+1] / sectorSize
	if withErrors {
		return sectors * (sectorSize + 1)
	}
	return sectors * sectorSize
}

// tracksForSize derives track count and error table presence from the size of
// an image file. It returns 0 tracks if size does not fit any image layout.
func tracksForSize(size int64) (int, bool) {
	for _, withErrors := range []bool{false, true} {
		sz := int64(sectorSize)
		if withErrors {
			sz++
		}
		if size%sz != 0 {
			continue
		}
		extra := size/sz - sectorsStandard
		if extra < 0 || extra > 7*sectorsExtension || extra%sectorsExtension != 0 {
			continue
		}
		return MinTracks + int(extra/sectorsExtension), withErrors
	}
	return 0, false
}
