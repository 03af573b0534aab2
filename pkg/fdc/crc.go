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

// CRC16 calculates the CRC-CCITT (polynomial x^16 + x^12 + x^5 + 1) of data,
// starting from crc, MSB first, the way the controller checks ID and data
// fields.
func CRC16(data []byte, crc uint16) uint16 {
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (b^byte(crc>>8))&0x80 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
			b <<= 1
		}
	}
	return crc
}
