// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scd30 provides a driver for the Sensirion SCD30 CO2, temperature
// and humidity sensor module over I²C.
//
// Every command is a write of a 16-bit command word, optionally followed by
// one argument word and its CRC, then a 30ms pause, then for queries a read
// of one or more word groups. Each group is two data bytes and a CRC-8.
// Measurements are IEEE-754 floats sent as two word groups, high word first.
//
// The driver keeps no state about the sensor. Call TriggerContinuous once,
// then poll DataReady before ReadMeasurement or Sense. Nothing is retried;
// a failed call can simply be made again.
//
// # Datasheets
//
// https://sensirion.com/media/documents/4EAF6AF8/61652C3C/Sensirion_CO2_Sensors_SCD30_Datasheet.pdf
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
package scd30
