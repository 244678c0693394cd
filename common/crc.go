// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the integrity checks used by more than one sensor
// driver: the Sensirion CRC-8 and the 8-bit additive checksum of the DHT
// family.
package common

// CRC8 calculates the Sensirion CRC-8 (polynomial x^8+x^5+x^4+1) of bytes,
// starting from seed. Sensors of the SHT1x generation seed with the bit
// reversed low nibble of their status register, which is 0 after reset.
func CRC8(seed byte, bytes []byte) byte {
	crc := seed
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

// Reverse8 returns b with its bit order reversed. The SHT1x transmits its CRC
// LSB first relative to the CRC8 register.
func Reverse8(b byte) byte {
	var r byte
	for range 8 {
		r = r<<1 | b&1
		b >>= 1
	}
	return r
}

// Sum8 returns the low 8 bits of the sum of bytes.
func Sum8(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		sum += val
	}
	return sum
}
