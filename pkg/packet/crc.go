// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package packet

// CalculateCRC computes the CRC-8 (poly 0x07, MSB first, init 0) of data
func CalculateCRC(data []byte) uint8 {
	crc := uint8(crcInitial)
	for _, b := range data {
		for i := 0; i < 8; i++ {
			feedback := crc&0x80 != 0
			if b&(0x80>>i) != 0 {
				feedback = !feedback
			}
			crc <<= 1
			if feedback {
				crc ^= crcPolynomial
			}
		}
	}
	return crc
}
