// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GermanBionicSystems/scd30/scd30"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	path := filepath.Join(t.TempDir(), "scd30.yaml")
	data := `
bus: "/dev/i2c-1"
sensor:
  interval: 5
  pressure_mbar: 1013
  altitude: 300
  temperature_offset: 0
  self_calibration: false
poll:
  count: 3
chart: co2.png
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bus != "/dev/i2c-1" || cfg.Sensor.Interval != 5 || cfg.Sensor.Pressure != 1013 {
		t.Errorf("unexpected sensor config %#v", cfg)
	}
	if cfg.Sensor.Altitude == nil || *cfg.Sensor.Altitude != 300 {
		t.Error("altitude not read")
	}
	// An explicit 0 is kept apart from a missing key.
	if cfg.Sensor.TemperatureOffset == nil || *cfg.Sensor.TemperatureOffset != 0 {
		t.Error("temperature_offset not read")
	}
	if cfg.Sensor.SelfCalibration == nil || *cfg.Sensor.SelfCalibration {
		t.Error("self_calibration not read")
	}
	// Defaults survive for keys not in the file.
	if cfg.Poll.Count != 3 || cfg.Poll.RetryDelayMs != 10000 || cfg.Sensor.SettleDelayMs != 30 {
		t.Errorf("unexpected poll config %#v", cfg.Poll)
	}
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	if o := cfg.Sensor.opts(); o.SettleDelay != scd30.DefaultSettleDelay {
		t.Errorf("settle delay %s", o.SettleDelay)
	}
}

func TestValidate(t *testing.T) {
	tests := []func(c *Config){
		func(c *Config) { c.Sensor.Interval = 1 },
		func(c *Config) { c.Sensor.Interval = 1801 },
		func(c *Config) { c.Sensor.Pressure = 600 },
		func(c *Config) { c.Sensor.SettleDelayMs = -1 },
		func(c *Config) { c.Poll.Count = -1 },
		func(c *Config) { c.Poll.RetryDelayMs = 0 },
	}
	for i, f := range tests {
		cfg := defaultConfig()
		f(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}

type fakeSensor struct {
	ready []bool
	errs  int
	reads int
}

func (f *fakeSensor) DataReady() (bool, error) {
	if f.errs > 0 {
		f.errs--
		return false, &scd30.CommunicationError{Op: "get data ready", Err: errors.New("nack")}
	}
	if len(f.ready) == 0 {
		return true, nil
	}
	r := f.ready[0]
	f.ready = f.ready[1:]
	return r, nil
}

func (f *fakeSensor) ReadMeasurement() (scd30.Measurement, error) {
	f.reads++
	return scd30.Measurement{CO2: float32(400 + 100*f.reads), Temperature: 21, Humidity: 45}, nil
}

func TestConfigure(t *testing.T) {
	zero := uint16(0)
	tests := []struct {
		name string
		s    SensorConfig
		ops  []i2ctest.IO
	}{
		{
			"unset",
			SensorConfig{Interval: 2},
			nil,
		},
		{
			"zero",
			SensorConfig{Interval: 2, Altitude: &zero, TemperatureOffset: &zero},
			[]i2ctest.IO{
				{Addr: scd30.DefaultAddress, W: []byte{0x51, 0x02, 0x00, 0x00, 0x81}},
				{Addr: scd30.DefaultAddress, W: []byte{0x54, 0x03, 0x00, 0x00, 0x81}},
			},
		},
	}
	for _, test := range tests {
		ops := []i2ctest.IO{
			{Addr: scd30.DefaultAddress, W: []byte{0xd1, 0x00}},
			{Addr: scd30.DefaultAddress, R: []byte{0x03, 0x42, 0xf3}},
			{Addr: scd30.DefaultAddress, W: []byte{0x46, 0x00, 0x00, 0x02, 0xe3}},
		}
		ops = append(ops, test.ops...)
		ops = append(ops, i2ctest.IO{Addr: scd30.DefaultAddress, W: []byte{0x00, 0x10, 0x00, 0x00, 0x81}})
		bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
		dev, err := scd30.NewI2C(bus, scd30.DefaultAddress, &scd30.Opts{Sleep: func(time.Duration) {}})
		if err != nil {
			t.Fatal(err)
		}
		if err := configure(dev, &test.s); err != nil {
			t.Errorf("%s: %v", test.name, err)
		}
		if err := bus.Close(); err != nil {
			t.Errorf("%s: %v", test.name, err)
		}
	}
}

func TestPoll(t *testing.T) {
	fs := &fakeSensor{ready: []bool{false, true, false}, errs: 1}
	var shown []scd30.Measurement
	samples := poll(fs, 3, time.Millisecond, time.Millisecond, make(chan struct{}), func(m scd30.Measurement) error {
		shown = append(shown, m)
		return nil
	})
	if len(samples) != 3 || len(shown) != 3 || fs.reads != 3 {
		t.Fatalf("samples=%d shown=%d reads=%d", len(samples), len(shown), fs.reads)
	}
	if shown[2].CO2 != 700 {
		t.Errorf("unexpected last reading %#v", shown[2])
	}
}

func TestPollStop(t *testing.T) {
	fs := &fakeSensor{errs: 1 << 30}
	stop := make(chan struct{})
	close(stop)
	samples := poll(fs, 0, time.Hour, time.Hour, stop, func(scd30.Measurement) error { return nil })
	if len(samples) != 0 {
		t.Errorf("unexpected samples %d", len(samples))
	}
}

func TestChart(t *testing.T) {
	if _, err := drawChart(nil); err == nil {
		t.Error("empty chart accepted")
	}
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var samples []sample
	for i := 0; i < 20; i++ {
		samples = append(samples, sample{
			t: start.Add(time.Duration(i) * 2 * time.Second),
			m: scd30.Measurement{CO2: float32(500 + 60*i), Temperature: 22, Humidity: 40},
		})
	}
	path := filepath.Join(t.TempDir(), "co2.png")
	if err := saveChart(path, samples); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != chartWidth || b.Dy() != chartHeight {
		t.Errorf("unexpected size %v", b)
	}
}
