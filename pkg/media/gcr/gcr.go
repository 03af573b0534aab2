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

// Package gcr implements the group code recording used by Commodore disk
// drives. Every nibble of user data is written to disk as a 5 bit code chosen
// such that there are never more than two consecutive zero bits, and no more
// than eight consecutive one bits outside of sync marks.
package gcr

//
var encodeTable = [16]byte{
	0x0A, 0x0B, 0x12, 0x13, 0x0E, 0x0F, 0x16, 0x17,
	0x09, 0x19, 0x1A, 0x1B, 0x0D, 0x1D, 0x1E, 0x15,
}

// entries >= 0x80 mark invalid codes
var decodeTable = [32]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0x08, 0x00, 0x01, 0xFF, 0x0C, 0x04, 0x05,
	0xFF, 0xFF, 0x02, 0x03, 0xFF, 0x0F, 0x06, 0x07,
	0xFF, 0x09, 0x0A, 0x0B, 0xFF, 0x0D, 0x0E, 0xFF,
}

// EncodeFourBytes encodes the first four bytes of in into exactly five bytes
// of GCR data in out. The eight resulting 5 bit codes are packed MSB first.
func EncodeFourBytes(out, in []byte) {

	var bitBuf byte
	bitCnt := 0
	o := 0

	for i := 0; i < 8; i++ {
		n := in[i>>1]
		if i&1 == 0 {
			n >>= 4
		}
		n = encodeTable[n&0x0F]
		for j := 0; j < 5; j++ {
			bitBuf = bitBuf<<1 | (n&0x10)>>4
			n <<= 1
			if bitCnt++; bitCnt == 8 {
				out[o] = bitBuf
				o++
				bitBuf = 0
				bitCnt = 0
			}
		}
	}
}

// DecodeFourBytes decodes five bytes of GCR data from in into four bytes in
// out. It returns false if any of the 5 bit codes is invalid. Invalid codes
// decode to a zero nibble, and decoding continues with the next code.
func DecodeFourBytes(out, in []byte) bool {

	ok := true
	var bitBuf byte
	bitCnt := 0
	ix := 0

	for i := 0; i < 8; i++ {
		var n byte
		for j := 0; j < 5; j++ {
			if bitCnt == 0 {
				bitBuf = in[ix]
				ix++
				bitCnt = 8
			}
			bitCnt--
			n = n<<1 | (bitBuf&0x80)>>7
			bitBuf <<= 1
		}
		n = decodeTable[n]
		if n >= 0x80 {
			n = 0
			ok = false
		}
		if i&1 == 0 {
			out[i>>1] = n << 4
		} else {
			out[i>>1] |= n
		}
	}

	return ok
}
