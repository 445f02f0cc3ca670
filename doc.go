// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devices is a container for the Sensirion SCD30 driver and its
// tooling.
//
// The driver lives in package scd30, the CRC shared with other Sensirion
// sensors in package common, the terminal display in package gauge and the
// command line tool in cmd/scd30.
package devices
