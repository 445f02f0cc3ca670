// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GermanBionicSystems/scd30/scd30"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration of the tool. Flags given on the
// command line override it.
type Config struct {
	// I²C bus name, "" for the first one available.
	Bus    string       `yaml:"bus"`
	Sensor SensorConfig `yaml:"sensor"`
	Poll   PollConfig   `yaml:"poll"`
	// Path of a PNG chart written on exit, "" for none.
	Chart string `yaml:"chart"`
	// Draw a coloured bar instead of printing lines.
	Gauge bool `yaml:"gauge"`
}

// SensorConfig is written to the sensor before measuring. Unset pointer
// fields are left untouched on the sensor.
type SensorConfig struct {
	Interval uint16 `yaml:"interval"`
	// Ambient pressure in mbar, 0 for none.
	Pressure uint16 `yaml:"pressure_mbar"`
	// Metres above sea level.
	Altitude *uint16 `yaml:"altitude"`
	// Ticks of 0.01°C.
	TemperatureOffset *uint16 `yaml:"temperature_offset"`
	SelfCalibration   *bool   `yaml:"self_calibration"`
	SettleDelayMs     int     `yaml:"settle_delay_ms"`
}

type PollConfig struct {
	// Number of readings before exiting, 0 for no limit.
	Count int `yaml:"count"`
	// Pause between two data ready queries.
	ReadyDelayMs int `yaml:"ready_delay_ms"`
	// Pause after a failed command before trying again.
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

func defaultConfig() *Config {
	return &Config{
		Sensor: SensorConfig{
			Interval:      2,
			SettleDelayMs: int(scd30.DefaultSettleDelay / time.Millisecond),
		},
		Poll: PollConfig{
			ReadyDelayMs: 500,
			RetryDelayMs: 10000,
		},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the ranges the sensor accepts.
func Validate(cfg *Config) error {
	s := cfg.Sensor
	if s.Interval < scd30.MinInterval || s.Interval > scd30.MaxInterval {
		return fmt.Errorf("sensor.interval %d out of range %d..%d", s.Interval, scd30.MinInterval, scd30.MaxInterval)
	}
	if s.Pressure != 0 && (s.Pressure < 700 || s.Pressure > 1400) {
		return fmt.Errorf("sensor.pressure_mbar %d out of range 700..1400", s.Pressure)
	}
	if s.SettleDelayMs < 0 {
		return errors.New("sensor.settle_delay_ms must not be negative")
	}
	if cfg.Poll.Count < 0 {
		return errors.New("poll.count must not be negative")
	}
	if cfg.Poll.ReadyDelayMs <= 0 || cfg.Poll.RetryDelayMs <= 0 {
		return errors.New("poll delays must be positive")
	}
	return nil
}

func (s *SensorConfig) opts() *scd30.Opts {
	return &scd30.Opts{
		SettleDelay: time.Duration(s.SettleDelayMs) * time.Millisecond,
		Sleep:       time.Sleep,
	}
}
