// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import "fmt"

// IOError is returned when the bus the sensor hangs off could not be opened.
type IOError struct {
	Bus string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("scd30: opening bus %q: %v", e.Bus, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ChecksumError is returned when a word group read from the sensor does not
// carry the CRC computed over its two data bytes. The data is corrupt or the
// exchange is out of step.
type ChecksumError struct {
	Op   string
	Got  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("scd30: crc mismatch, got 0x%02x expected 0x%02x", e.Got, e.Want)
	}
	return fmt.Sprintf("scd30: %s: crc mismatch, got 0x%02x expected 0x%02x", e.Op, e.Got, e.Want)
}

// CommunicationError is returned when a write or a read on the bus failed
// while executing a command.
type CommunicationError struct {
	Op string
	// Read is true if the failure happened while reading the response.
	Read bool
	Err  error
}

func (e *CommunicationError) Error() string {
	dir := "writing"
	if e.Read {
		dir = "reading"
	}
	return fmt.Sprintf("scd30: %s: error %s: %v", e.Op, dir, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}
