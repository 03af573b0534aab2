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

package gcr

import "fmt"

// ErrorCode is the per sector error code as reported by the drive DOS. Codes
// other than OK are used to simulate damaged sectors.
type ErrorCode byte

const (
	// NoCode is what a sector has when no error table has been loaded; it
	// encodes like OK
	NoCode         ErrorCode = 0x00
	OK             ErrorCode = 0x01
	HeaderNotFound ErrorCode = 0x02
	SyncNotFound   ErrorCode = 0x03
	DataNotFound   ErrorCode = 0x04
	DataCRCError   ErrorCode = 0x05
	HeaderCRCError ErrorCode = 0x09
	DecodeError    ErrorCode = 0x10
)

//
func (e ErrorCode) String() string {
	switch e {
	case NoCode:
		return "none"
	case OK:
		return "ok"
	case HeaderNotFound:
		return "header not found"
	case SyncNotFound:
		return "sync not found"
	case DataNotFound:
		return "data not found"
	case DataCRCError:
		return "data checksum error"
	case HeaderCRCError:
		return "header checksum error"
	case DecodeError:
		return "GCR decode error"
	}
	return fmt.Sprintf("code 0x%02X", byte(e))
}

// IsFault tells whether the code stands for a damaged sector.
func (e ErrorCode) IsFault() bool {
	return e != NoCode && e != OK
}
