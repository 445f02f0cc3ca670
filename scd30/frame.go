// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"fmt"
	"math"

	"github.com/GermanBionicSystems/scd30/common"
)

const (
	// A float is sent as two word groups, high word first.
	floatSize = 2 * common.WordSize
	// CO2, temperature and humidity.
	measurementSize = 3 * floatSize
)

// encodeCommand returns the 2 byte frame for a command without argument.
func encodeCommand(op uint16) []byte {
	return []byte{byte(op >> 8), byte(op)}
}

// encodeCommandArg returns the 5 byte frame opcode, argument, CRC(argument).
// The sensor never takes more than one argument word.
func encodeCommandArg(op, arg uint16) []byte {
	w := make([]byte, 2+common.WordSize)
	w[0] = byte(op >> 8)
	w[1] = byte(op)
	common.PutWord(w[2:], arg)
	return w
}

// decodeWord validates a single word group.
func decodeWord(b []byte) (uint16, error) {
	if len(b) != common.WordSize {
		return 0, fmt.Errorf("scd30: word group is %d bytes, expected %d", len(b), common.WordSize)
	}
	v, ok := common.Word(b)
	if !ok {
		return 0, &ChecksumError{Got: b[2], Want: common.CRC8(b[:2])}
	}
	return v, nil
}

// decodeFloat validates both word groups of a channel and reassembles the
// IEEE-754 value from the four data bytes.
func decodeFloat(b []byte) (float32, error) {
	if len(b) != floatSize {
		return 0, fmt.Errorf("scd30: float is %d bytes, expected %d", len(b), floatSize)
	}
	hi, err := decodeWord(b[:common.WordSize])
	if err != nil {
		return 0, err
	}
	lo, err := decodeWord(b[common.WordSize:])
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo)), nil
}

// decodeMeasurement splits an 18 byte read measurement response into its
// three channels. The response is rejected if any of the six groups fails.
func decodeMeasurement(b []byte) (Measurement, error) {
	var m Measurement
	if len(b) != measurementSize {
		return m, fmt.Errorf("scd30: measurement is %d bytes, expected %d", len(b), measurementSize)
	}
	dst := []*float32{&m.CO2, &m.Temperature, &m.Humidity}
	for i, p := range dst {
		v, err := decodeFloat(b[i*floatSize : (i+1)*floatSize])
		if err != nil {
			return Measurement{}, err
		}
		*p = v
	}
	return m, nil
}

// decodeFlag maps a boolean register. Only a low byte of 1 is true.
func decodeFlag(b []byte) (bool, error) {
	if _, err := decodeWord(b); err != nil {
		return false, err
	}
	return b[1] == 0x01, nil
}
