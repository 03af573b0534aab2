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

// Status register bits. Some bits mean different things depending on the
// class of the last command.
const (
	StatusBusy = 0x01
	// type I: over index hole, type II/III: data request
	StatusIndex       = 0x02
	StatusDataRequest = 0x02
	StatusTrack0      = 0x04
	// type II/III
	StatusCRCError = 0x08
	// type I: seek error, type II/III: record not found
	StatusSeekError      = 0x10
	StatusRecordNotFound = 0x10
	// type I: spin-up complete, type II/III writes: write error
	StatusSpinUp     = 0x20
	StatusWriteError = 0x20
	StatusWriteProt  = 0x40
	// WD1770/1772: motor on, WD1773: not ready
	StatusMotorOn  = 0x80
	StatusNotReady = 0x80
)

// Commands, to be combined with their flag bits.
const (
	// type I: ccccuhvrr
	CmdRestore = 0x00
	CmdSeek    = 0x10
	CmdStep    = 0x20
	CmdStepIn  = 0x40
	CmdStepOut = 0x60

	FlagUpdate = 0x10
	FlagVerify = 0x04

	// type II: cccmhepa
	CmdReadSector  = 0x80
	CmdWriteSector = 0xA0

	FlagMultiSector = 0x10
	FlagSide        = 0x08 // WD1773 only, side to select
	FlagSideCompare = 0x02 // WD1773 only, enables side select

	// type III
	CmdReadAddress = 0xC0
	CmdReadTrack   = 0xE0
	CmdWriteTrack  = 0xF0

	// type IV: ccccIIii
	CmdForceInterrupt = 0xD0

	FlagIndexInterrupt     = 0x04
	FlagImmediateInterrupt = 0x08
)

const (
	SectorSize = 512

	MaxTracks          = 240
	MaxSides           = 2
	MaxSectorsPerTrack = 240

	// CRC of the three A1 sync marks and the FE address mark preceding an
	// ID field
	idFieldCRCInit = 0xB230
)
