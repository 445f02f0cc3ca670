// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC8 calculation and the 16-bit word framing used by
// Sensirion sensors.
package common

// WordSize is the length of a word group on the wire: two data bytes
// followed by their CRC.
const WordSize = 3

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
//
// Polynomial 0x31, initial value 0xff, no reflection and no final xor.
func CRC8(bytes []byte) byte {
	var crc byte = 0xff
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (byte)((crc << 1) ^ 0x31)
			}
		}
	}
	return crc
}

// PutWord writes val big-endian into dst[0:2] and its CRC into dst[2]. dst
// must be at least WordSize long.
func PutWord(dst []byte, val uint16) {
	_ = dst[2]
	dst[0] = byte(val >> 8)
	dst[1] = byte(val)
	dst[2] = CRC8(dst[:2])
}

// Word returns the big-endian value of the first word group in src, and
// whether its CRC byte matched.
func Word(src []byte) (uint16, bool) {
	_ = src[2]
	val := uint16(src[0])<<8 | uint16(src[1])
	return val, CRC8(src[:2]) == src[2]
}
