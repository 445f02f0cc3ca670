// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the only i2c address the SCD30 answers on.
	DefaultAddress uint16 = 0x61

	// DefaultSettleDelay is the time the sensor needs between a command and
	// its response.
	DefaultSettleDelay = 30 * time.Millisecond
)

// Limits from the interface description.
const (
	MinInterval = 2
	MaxInterval = 1800

	MinForcedRecalibration = 400
	MaxForcedRecalibration = 2000

	minPressure = 700 * 100 * physic.Pascal
	maxPressure = 1400 * 100 * physic.Pascal
)

// PPM=Parts Per Million. Units of measure for CO2 concentration.
type PPM float32

func (ppm PPM) String() string {
	return fmt.Sprintf("%.1f PPM", float32(ppm))
}

// Measurement is the raw reading of the sensor. CO2 is in ppm, Temperature
// in °C and Humidity in %RH.
type Measurement struct {
	CO2         float32
	Temperature float32
	Humidity    float32
}

// Env is a sensor reading converted to periph units.
type Env struct {
	physic.Env
	CO2 PPM
}

// Return the sensor readings in string format.
func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s CO2: %s", e.Temperature.String(), e.Humidity.String(), e.CO2.String())
}

// Structure to simplify sending commands to the device.
type command struct {
	// Used in error messages.
	name string
	// The 16-bit command word.
	cmdWord uint16
	// The expected number of bytes returned. 0, 3 or 18.
	responseSize int
}

var cmdFirmwareVersion = command{
	name:         "firmware version",
	cmdWord:      0xd100,
	responseSize: 3,
}
var cmdTriggerContinuous = command{
	name:    "trigger continuous measurement",
	cmdWord: 0x0010,
}
var cmdStopContinuous = command{
	name:    "stop continuous measurement",
	cmdWord: 0x0104,
}
var cmdGetMeasurementInterval = command{
	name:         "get measurement interval",
	cmdWord:      0x4600,
	responseSize: 3,
}
var cmdSetMeasurementInterval = command{
	name:    "set measurement interval",
	cmdWord: 0x4600,
}
var cmdGetDataReady = command{
	name:         "get data ready",
	cmdWord:      0x0202,
	responseSize: 3,
}
var cmdReadMeasurement = command{
	name:         "read measurement",
	cmdWord:      0x0300,
	responseSize: measurementSize,
}
var cmdGetSelfCalibration = command{
	name:         "get self calibration",
	cmdWord:      0x5306,
	responseSize: 3,
}
var cmdSetSelfCalibration = command{
	name:    "set self calibration",
	cmdWord: 0x5306,
}
var cmdSoftReset = command{
	name:    "soft reset",
	cmdWord: 0xd304,
}
var cmdGetAltitude = command{
	name:         "get altitude",
	cmdWord:      0x5102,
	responseSize: 3,
}
var cmdSetAltitude = command{
	name:    "set altitude",
	cmdWord: 0x5102,
}
var cmdGetTemperatureOffset = command{
	name:         "get temperature offset",
	cmdWord:      0x5403,
	responseSize: 3,
}
var cmdSetTemperatureOffset = command{
	name:    "set temperature offset",
	cmdWord: 0x5403,
}
var cmdGetForcedRecalibration = command{
	name:         "get forced recalibration",
	cmdWord:      0x5204,
	responseSize: 3,
}
var cmdSetForcedRecalibration = command{
	name:    "set forced recalibration",
	cmdWord: 0x5204,
}

// Opts holds the configuration options for the device.
type Opts struct {
	// SettleDelay is the pause between writing a command and reading its
	// response. Default is 30ms. Leave 0 to use default.
	SettleDelay time.Duration
	// Sleep is called with SettleDelay after every command. Default is
	// time.Sleep. Replace it to suspend some other way.
	Sleep func(time.Duration)
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	SettleDelay: DefaultSettleDelay,
	Sleep:       time.Sleep,
}

// DevConfig is the persistent configuration of the sensor. Use
// Dev.GetConfiguration() to read it and Dev.SetConfiguration() to change it.
// The SCD30 stores all of these in non-volatile memory as soon as they are
// written.
type DevConfig struct {
	// Seconds between two measurements in continuous mode.
	MeasurementInterval uint16
	// Automatic self calibration enabled.
	SelfCalibration bool
	// Sensor altitude above sea level, in metres.
	Altitude physic.Distance
	// Offset subtracted from the temperature reading. Stored with a
	// resolution of 0.01°C.
	TemperatureOffset physic.Temperature
	// Reference CO2 concentration of the last forced recalibration. Read
	// back as written; not applied unless changed.
	ForcedRecalibration PPM
}

// Dev represents an SCD30 device.
//
// All commands are serialized on an internal mutex; the sensor cannot
// interleave two exchanges.
type Dev struct {
	c    conn.Conn
	opts Opts
	mu   sync.Mutex
}

// NewI2C returns a Dev talking to the sensor on bus b at addr. The constant
// DefaultAddress should be supplied as the value for addr. opts may be nil.
//
// No command is sent to the device.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	return New(&i2c.Dev{Bus: b, Addr: addr}, opts)
}

// New returns a Dev using c as the transport. opts may be nil.
func New(c conn.Conn, opts *Opts) (*Dev, error) {
	if c == nil {
		return nil, errors.New("scd30: nil connection")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{c: c, opts: *opts}
	if d.opts.SettleDelay <= 0 {
		d.opts.SettleDelay = DefaultSettleDelay
	}
	if d.opts.Sleep == nil {
		d.opts.Sleep = time.Sleep
	}
	return d, nil
}

// Open opens the named i2c bus ("" for the first one available) and returns
// a Dev at DefaultAddress on it. Close the returned io.Closer when done. The
// host drivers must already be initialized with host.Init().
func Open(busName string, opts *Opts) (*Dev, io.Closer, error) {
	b, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, &IOError{Bus: busName, Err: err}
	}
	d, err := NewI2C(b, DefaultAddress, opts)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	return d, b, nil
}

// FirmwareVersion returns the firmware version, major in the high byte and
// minor in the low byte.
func (d *Dev) FirmwareVersion() (uint16, error) {
	return d.readWord(cmdFirmwareVersion)
}

// TriggerContinuous starts continuous measurement without ambient pressure
// compensation.
func (d *Dev) TriggerContinuous() error {
	return d.write(cmdTriggerContinuous, 0)
}

// StartContinuous starts continuous measurement, compensating readings for
// the ambient pressure p. A p of 0 disables compensation; otherwise p must be
// in 700..1400 mbar. Pressure compensation overrides the altitude setting.
func (d *Dev) StartContinuous(p physic.Pressure) error {
	if p != 0 && (p < minPressure || p > maxPressure) {
		return fmt.Errorf("scd30: ambient pressure %s out of range", p)
	}
	return d.write(cmdTriggerContinuous, uint16(p/(100*physic.Pascal)))
}

// StopContinuous stops continuous measurement. It sends command word 0x0104.
func (d *Dev) StopContinuous() error {
	_, err := d.sendCommand(cmdStopContinuous, encodeCommand(cmdStopContinuous.cmdWord))
	return err
}

// Halt implements conn.Resource. It stops continuous measurement.
func (d *Dev) Halt() error {
	return d.StopContinuous()
}

// SetMeasurementInterval sets the interval between measurements in continuous
// mode, 2 to 1800 seconds.
func (d *Dev) SetMeasurementInterval(seconds uint16) error {
	if seconds < MinInterval || seconds > MaxInterval {
		return fmt.Errorf("scd30: invalid measurement interval %d", seconds)
	}
	return d.write(cmdSetMeasurementInterval, seconds)
}

// MeasurementInterval returns the interval between measurements in seconds.
func (d *Dev) MeasurementInterval() (uint16, error) {
	return d.readWord(cmdGetMeasurementInterval)
}

// DataReady returns true if a measurement can be read from the buffer.
func (d *Dev) DataReady() (bool, error) {
	return d.readFlag(cmdGetDataReady)
}

// ReadMeasurement reads the last measurement. The sensor must be in
// continuous mode, and DataReady should be polled first; neither is checked.
func (d *Dev) ReadMeasurement() (Measurement, error) {
	r, err := d.sendCommand(cmdReadMeasurement, encodeCommand(cmdReadMeasurement.cmdWord))
	if err != nil {
		return Measurement{}, err
	}
	m, err := decodeMeasurement(r)
	return m, withOp(err, cmdReadMeasurement)
}

// SelfCalibration returns true if automatic self calibration is enabled.
func (d *Dev) SelfCalibration() (bool, error) {
	return d.readFlag(cmdGetSelfCalibration)
}

// SetSelfCalibration enables or disables automatic self calibration.
func (d *Dev) SetSelfCalibration(on bool) error {
	var arg uint16
	if on {
		arg = 1
	}
	return d.write(cmdSetSelfCalibration, arg)
}

// SoftReset restarts the sensor. Settings kept in non-volatile memory
// survive.
func (d *Dev) SoftReset() error {
	_, err := d.sendCommand(cmdSoftReset, encodeCommand(cmdSoftReset.cmdWord))
	return err
}

// Altitude returns the altitude compensation value in metres above sea level.
func (d *Dev) Altitude() (uint16, error) {
	return d.readWord(cmdGetAltitude)
}

// SetAltitude sets the altitude compensation value in metres above sea level.
func (d *Dev) SetAltitude(metres uint16) error {
	return d.write(cmdSetAltitude, metres)
}

// TemperatureOffset returns the temperature offset in ticks of 0.01°C.
func (d *Dev) TemperatureOffset() (uint16, error) {
	return d.readWord(cmdGetTemperatureOffset)
}

// SetTemperatureOffset sets the temperature offset in ticks of 0.01°C.
func (d *Dev) SetTemperatureOffset(ticks uint16) error {
	return d.write(cmdSetTemperatureOffset, ticks)
}

// ForcedRecalibration returns the reference value of the last forced
// recalibration, in ppm.
func (d *Dev) ForcedRecalibration() (uint16, error) {
	return d.readWord(cmdGetForcedRecalibration)
}

// SetForcedRecalibration calibrates the sensor against a known CO2
// concentration of 400 to 2000 ppm. The sensor should have been running in
// continuous mode for at least 2 minutes in a stable environment.
func (d *Dev) SetForcedRecalibration(ppm uint16) error {
	if ppm < MinForcedRecalibration || ppm > MaxForcedRecalibration {
		return fmt.Errorf("scd30: invalid forced recalibration value %d", ppm)
	}
	return d.write(cmdSetForcedRecalibration, ppm)
}

// Sense reads the last measurement and converts it to periph units. It does
// not wait for DataReady.
func (d *Dev) Sense(env *Env) error {
	env.Temperature = 0
	env.Humidity = 0
	env.Pressure = 0
	env.CO2 = 0
	m, err := d.ReadMeasurement()
	if err != nil {
		return err
	}
	env.CO2 = PPM(m.CO2)
	env.Temperature = physic.ZeroCelsius + physic.Temperature(float64(m.Temperature)*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(float64(m.Humidity) * float64(physic.PercentRH))
	return nil
}

// Precision returns the resolution of the readings as per the datasheet:
// 1 ppm for CO2, 0.01°C and 0.01%RH.
func (d *Dev) Precision(env *Env) {
	env.Temperature = physic.Kelvin / 100
	env.Humidity = physic.PercentRH / 100
	env.Pressure = 0
	env.CO2 = 1
}

// GetConfiguration returns the persistent settings of the sensor. You can
// alter them and call SetConfiguration.
func (d *Dev) GetConfiguration() (*DevConfig, error) {
	cfg := &DevConfig{}
	var w uint16
	var err error

	if cfg.MeasurementInterval, err = d.MeasurementInterval(); err != nil {
		return nil, err
	}
	if cfg.SelfCalibration, err = d.SelfCalibration(); err != nil {
		return nil, err
	}
	if w, err = d.Altitude(); err != nil {
		return nil, err
	}
	cfg.Altitude = physic.Distance(w) * physic.Metre
	if w, err = d.TemperatureOffset(); err != nil {
		return nil, err
	}
	cfg.TemperatureOffset = ticksToOffset(w)
	if w, err = d.ForcedRecalibration(); err != nil {
		return nil, err
	}
	cfg.ForcedRecalibration = PPM(w)
	return cfg, nil
}

// SetConfiguration writes the fields of newCfg that differ from the current
// configuration of the sensor. All changed fields are checked before the
// first write, so an invalid value leaves the sensor untouched.
func (d *Dev) SetConfiguration(newCfg *DevConfig) error {
	cur, err := d.GetConfiguration()
	if err != nil {
		return fmt.Errorf("scd30 GetConfiguration(): %w", err)
	}

	type pending struct {
		cmd command
		arg uint16
	}
	var writes []pending

	if cur.MeasurementInterval != newCfg.MeasurementInterval {
		if newCfg.MeasurementInterval < MinInterval || newCfg.MeasurementInterval > MaxInterval {
			return fmt.Errorf("scd30: invalid measurement interval %d", newCfg.MeasurementInterval)
		}
		writes = append(writes, pending{cmdSetMeasurementInterval, newCfg.MeasurementInterval})
	}
	if cur.SelfCalibration != newCfg.SelfCalibration {
		var arg uint16
		if newCfg.SelfCalibration {
			arg = 1
		}
		writes = append(writes, pending{cmdSetSelfCalibration, arg})
	}
	if cur.Altitude != newCfg.Altitude {
		if newCfg.Altitude < 0 || newCfg.Altitude > 0xffff*physic.Metre {
			return fmt.Errorf("scd30: invalid altitude %s", newCfg.Altitude)
		}
		writes = append(writes, pending{cmdSetAltitude, uint16(newCfg.Altitude / physic.Metre)})
	}
	if cur.TemperatureOffset != newCfg.TemperatureOffset {
		ticks, err := offsetToTicks(newCfg.TemperatureOffset)
		if err != nil {
			return err
		}
		writes = append(writes, pending{cmdSetTemperatureOffset, ticks})
	}
	if cur.ForcedRecalibration != newCfg.ForcedRecalibration {
		frc := newCfg.ForcedRecalibration
		if frc < MinForcedRecalibration || frc > MaxForcedRecalibration || frc != PPM(uint16(frc)) {
			return fmt.Errorf("scd30: invalid forced recalibration value %s", frc)
		}
		writes = append(writes, pending{cmdSetForcedRecalibration, uint16(frc)})
	}

	for _, p := range writes {
		if err := d.write(p.cmd, p.arg); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("scd30: %s", d.c.String())
}

// write sends a command with one argument word.
func (d *Dev) write(cmd command, arg uint16) error {
	_, err := d.sendCommand(cmd, encodeCommandArg(cmd.cmdWord, arg))
	return err
}

func (d *Dev) readWord(cmd command) (uint16, error) {
	r, err := d.sendCommand(cmd, encodeCommand(cmd.cmdWord))
	if err != nil {
		return 0, err
	}
	v, err := decodeWord(r)
	return v, withOp(err, cmd)
}

func (d *Dev) readFlag(cmd command) (bool, error) {
	r, err := d.sendCommand(cmd, encodeCommand(cmd.cmdWord))
	if err != nil {
		return false, err
	}
	v, err := decodeFlag(r)
	return v, withOp(err, cmd)
}

// All commands to the sensor go through this function. The write and the
// read are separate transactions with the settle delay in between. A failed
// write returns before anything is read.
func (d *Dev) sendCommand(cmd command, w []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.c.Tx(w, nil); err != nil {
		return nil, &CommunicationError{Op: cmd.name, Err: err}
	}
	d.opts.Sleep(d.opts.SettleDelay)
	if cmd.responseSize == 0 {
		return nil, nil
	}
	r := make([]byte, cmd.responseSize)
	if err := d.c.Tx(nil, r); err != nil {
		return nil, &CommunicationError{Op: cmd.name, Read: true, Err: err}
	}
	return r, nil
}

// withOp tags a checksum error with the command that produced it.
func withOp(err error, cmd command) error {
	var ce *ChecksumError
	if errors.As(err, &ce) {
		ce.Op = cmd.name
	}
	return err
}

func ticksToOffset(ticks uint16) physic.Temperature {
	return physic.Temperature(ticks) * 10 * physic.MilliKelvin
}

func offsetToTicks(t physic.Temperature) (uint16, error) {
	ticks := (t + 5*physic.MilliKelvin) / (10 * physic.MilliKelvin)
	if t < 0 || ticks > 0xffff {
		return 0, fmt.Errorf("scd30: invalid temperature offset %s", t)
	}
	return uint16(ticks), nil
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
